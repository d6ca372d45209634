// Package quantization provides the vector codecs used by inverted-file
// indexes.
//
//   - ScalarQuantizer: 8-bit per-dimension scalar quantization (SQ8, 4x)
//   - ProductQuantizer: product quantization with up to 8 bits per sub-vector
//
// Both quantizers are trained on float32 data and encode into byte codes.
// ProductQuantizer scores codes against a query through a precomputed
// distance table (asymmetric distance computation):
//
//	pq, _ := quantization.NewProductQuantizer(128, 8, 8)
//	_ = pq.Train(ctx, vectors, rng)
//	table := pq.BuildDistanceTable(query, distance.MetricL2)
//	d := pq.AdcDistance(table, code)
package quantization
