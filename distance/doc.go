// Package distance provides vector distance calculations keyed by the metric
// types of the index package. All functions return a score where smaller
// means closer, so results of different metrics order the same way.
package distance
