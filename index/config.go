package index

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/annkit/codec"
	"github.com/hupe1980/annkit/distance"
)

// Config carries build and search parameters. Zero values select the
// defaults of each index type.
//
// The JSON keys follow the usual knob names: "m" is the number of product
// quantization sub-vectors, "M" the maximum graph degree of HNSW.
type Config struct {
	Metric         string   `json:"metric_type,omitempty"`
	K              int      `json:"k,omitempty"`
	NList          int      `json:"nlist,omitempty"`
	NProbe         int      `json:"nprobe,omitempty"`
	PQM            int      `json:"-"`
	NBits          int      `json:"nbits,omitempty"`
	HNSWM          int      `json:"-"`
	EfConstruction int      `json:"efConstruction,omitempty"`
	Ef             int      `json:"ef,omitempty"`
	Radius         *float32 `json:"radius,omitempty"`
	RangeFilter    *float32 `json:"range_filter,omitempty"`
	MaxIter        int      `json:"max_iter,omitempty"`
	Seed           int64    `json:"seed,omitempty"`
	Parallelism    int      `json:"parallelism,omitempty"`
	DeviceID       int      `json:"gpu_id,omitempty"`

	// ReorderK is the number of quantized candidates SCANN re-ranks against
	// the raw vectors. Values below k are raised to k.
	ReorderK int `json:"reorder_k,omitempty"`
	// WithRawData keeps raw vectors next to the SCANN codes. Unset means true.
	WithRawData *bool `json:"with_raw_data,omitempty"`
}

// configJSON shadows Config so the case-colliding "m"/"M" keys can be
// matched exactly.
type configJSON Config

// UnmarshalJSON implements json.Unmarshaler.
func (c *Config) UnmarshalJSON(data []byte) error {
	var base configJSON
	if err := gojson.Unmarshal(data, &base); err != nil {
		return err
	}
	var raw map[string]gojson.RawMessage
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, dst := range map[string]*int{"m": &base.PQM, "M": &base.HNSWM} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := gojson.Unmarshal(v, dst); err != nil {
			return &ErrInvalidConfig{Param: key, Reason: err.Error()}
		}
	}
	*c = Config(base)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Config) MarshalJSON() ([]byte, error) {
	data, err := gojson.Marshal(configJSON(c))
	if err != nil {
		return nil, err
	}
	var extra bytes.Buffer
	if c.PQM != 0 {
		fmt.Fprintf(&extra, `"m":%d,`, c.PQM)
	}
	if c.HNSWM != 0 {
		fmt.Fprintf(&extra, `"M":%d,`, c.HNSWM)
	}
	if extra.Len() == 0 {
		return data, nil
	}
	if bytes.Equal(data, []byte("{}")) {
		extra.Truncate(extra.Len() - 1)
	}
	out := make([]byte, 0, len(data)+extra.Len())
	out = append(out, '{')
	out = append(out, extra.Bytes()...)
	return append(out, data[1:]...), nil
}

// ParseConfig decodes a JSON parameter object.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := codec.Default.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse index config: %w", err)
	}
	return cfg, nil
}

// MetricType parses Metric. An empty metric selects def.
func (c Config) MetricType(def distance.Metric) (distance.Metric, error) {
	if c.Metric == "" {
		return def, nil
	}
	m, err := distance.ParseMetric(c.Metric)
	if err != nil {
		return 0, &ErrInvalidConfig{Param: "metric_type", Reason: err.Error()}
	}
	return m, nil
}

// IntOr returns v if positive and def otherwise.
func IntOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// F32 returns a pointer to v, for Radius and RangeFilter literals.
func F32(v float32) *float32 { return &v }
