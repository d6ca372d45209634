//go:build !amd64 && !arm64

package device

func hostISA() string { return "generic" }
