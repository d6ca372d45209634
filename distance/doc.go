// Package distance provides vector distance calculations.
//
// Float32 kernels delegate to vek32, which dispatches to SIMD implementations
// (AVX2/AVX-512 on x86-64) when the CPU supports them.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (lower is better)
//   - MetricIP: Inner product (higher is better)
//   - MetricCosine: Cosine similarity (higher is better)
//   - MetricHamming: Bit Hamming distance over packed binary vectors (lower is better)
//
// # Scores
//
// Index implementations rank candidates by a score where lower is always
// better. Provider returns such a score function and Metric.FromScore maps a
// score back to the value reported to callers.
//
//	score, _ := distance.Provider(distance.MetricIP)
//	s := score(a, b)                       // -dot(a, b)
//	reported := distance.MetricIP.FromScore(s) // dot(a, b)
package distance
