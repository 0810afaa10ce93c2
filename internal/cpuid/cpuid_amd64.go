//go:build amd64

package cpuid

import "golang.org/x/sys/cpu"

// HasAVX2 reports whether the CPU supports AVX2 and the OS has enabled
// YMM state saving.
func HasAVX2() bool {
	return cpu.X86.HasAVX2
}
