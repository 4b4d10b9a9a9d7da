package health

import "runtime"

// MemoryReader reports process memory usage in megabytes.
type MemoryReader func() float64

// RuntimeMemoryMB reports the memory obtained from the OS by the Go runtime.
// It is the closest portable stand-in for resident set size.
func RuntimeMemoryMB() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return float64(stats.Sys) / (1024 * 1024)
}
