package distance

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"github.com/viterin/vek/vek32"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	d := vek32.Distance(a, b)
	return d * d
}

// Cosine calculates the cosine similarity of two vectors.
// Returns 0 if either vector has zero norm.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	na := vek32.Norm(a)
	nb := vek32.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return vek32.Dot(a, b) / (na * nb)
}

// Hamming calculates the Hamming distance between two byte slices.
// Assumes slices are the same length.
// Returns the count of differing bits as a float32.
func Hamming(a, b []byte) float32 {
	var n int
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return float32(n)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm := vek32.Norm(v)
	if norm == 0 {
		return false
	}
	vek32.MulNumber_Inplace(v, 1/norm)
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricIP
	MetricCosine
	MetricHamming
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricIP:
		return "IP"
	case MetricCosine:
		return "COSINE"
	case MetricHamming:
		return "HAMMING"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a metric name such as "L2", "IP", "COSINE" or "HAMMING".
// Matching is case-insensitive.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L2", "":
		return MetricL2, nil
	case "IP":
		return MetricIP, nil
	case "COSINE":
		return MetricCosine, nil
	case "HAMMING":
		return MetricHamming, nil
	default:
		return 0, fmt.Errorf("unknown metric type: %q", s)
	}
}

// HigherIsBetter reports whether larger reported values mean closer vectors.
func (m Metric) HigherIsBetter() bool {
	return m == MetricIP || m == MetricCosine
}

// Binary reports whether the metric operates on packed binary vectors.
func (m Metric) Binary() bool {
	return m == MetricHamming
}

// FromScore converts an internal lower-is-better score into the value reported to callers.
func (m Metric) FromScore(score float32) float32 {
	if m.HigherIsBetter() {
		return -score
	}
	return score
}

// ToScore converts a reported value into an internal lower-is-better score.
func (m Metric) ToScore(v float32) float32 {
	if m.HigherIsBetter() {
		return -v
	}
	return v
}

// Func scores two float32 vectors. Lower is better.
type Func func(a, b []float32) float32

// FuncBytes scores two packed binary vectors. Lower is better.
type FuncBytes func(a, b []byte) float32

// Provider returns the lower-is-better score function for m.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricIP:
		return func(a, b []float32) float32 { return -Dot(a, b) }, nil
	case MetricCosine:
		return func(a, b []float32) float32 { return -Cosine(a, b) }, nil
	default:
		return nil, fmt.Errorf("unsupported metric for float32: %v", m)
	}
}

// ProviderBytes returns the lower-is-better score function for binary metrics.
func ProviderBytes(m Metric) (FuncBytes, error) {
	switch m {
	case MetricHamming:
		return Hamming, nil
	default:
		return nil, fmt.Errorf("unsupported metric for bytes: %v", m)
	}
}
