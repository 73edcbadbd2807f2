package index

import (
	"encoding/json"
	"fmt"
)

// MetricType represents the distance metric used for vector comparison.
type MetricType int

// Constants representing the supported distance metrics.
const (
	MetricTypeL2 MetricType = iota
	MetricTypeCosine
	MetricTypeDot
)

// String returns a string representation of the MetricType.
func (mt MetricType) String() string {
	switch mt {
	case MetricTypeL2:
		return "L2"
	case MetricTypeCosine:
		return "Cosine"
	case MetricTypeDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", int(mt))
	}
}

// ParseMetricType returns the MetricType for its string representation.
func ParseMetricType(s string) (MetricType, error) {
	switch s {
	case "L2":
		return MetricTypeL2, nil
	case "Cosine":
		return MetricTypeCosine, nil
	case "Dot":
		return MetricTypeDot, nil
	default:
		return 0, fmt.Errorf("unknown metric type: %q", s)
	}
}

// MarshalJSON encodes the metric as its stable string name.
//
// Persisted artifacts are self-describing, so the numeric enum values must
// never leak into stored bytes.
func (mt MetricType) MarshalJSON() ([]byte, error) {
	return json.Marshal(mt.String())
}

// UnmarshalJSON decodes the metric from its string name.
func (mt *MetricType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMetricType(s)
	if err != nil {
		return err
	}
	*mt = parsed
	return nil
}
