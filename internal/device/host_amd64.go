//go:build amd64

package device

import "golang.org/x/sys/cpu"

func hostISA() string {
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW:
		return "avx512"
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		return "avx2"
	default:
		return "generic"
	}
}
