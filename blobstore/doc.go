// Package blobstore abstracts where index artifacts live.
//
// An artifact is written once with Put and then read through an immutable
// Blob handle. Implementations exist for memory (tests, embedded use), the
// local filesystem, Amazon S3, and MinIO/S3-compatible object stores.
package blobstore
