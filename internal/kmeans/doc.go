// Package kmeans implements k-means clustering for coarse quantizers and
// product-quantization codebooks.
package kmeans
