// Package testutil provides testing utilities for annkit.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random datasets, computing exact
// nearest neighbors, and verifying search recall.
//
// # Random Datasets
//
//	rng := testutil.NewRNG(seed)
//	data := rng.ClusteredVectors(1000, 32, 8, 0.05) // row-major float32
//	ds := testutil.Float32Dataset(t, 32, data)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.BruteForceSearch(data, 32, query, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, ids)
package testutil
