//go:build arm64

package device

import "golang.org/x/sys/cpu"

func hostISA() string {
	switch {
	case cpu.ARM64.HasSVE2:
		return "sve2"
	case cpu.ARM64.HasASIMD:
		return "neon"
	default:
		return "generic"
	}
}
