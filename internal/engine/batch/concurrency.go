// internal/engine/batch/concurrency.go
package batch

import (
	"runtime"
)

// tabMemoryMB is the rough footprint of one browser tab
const tabMemoryMB = 50

// OptimalConcurrency returns a ceiling for parallel acquisitions based on CPU
// count and the memory the runtime has in reserve.
func OptimalConcurrency() int {
	numCPU := runtime.NumCPU()

	// acquisitions mostly wait on the network and the browser
	optimal := numCPU * 3
	if optimal > 50 {
		optimal = 50
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	availMB := (m.Sys - m.Alloc) / 1024 / 1024
	maxByMemory := int(availMB / tabMemoryMB)

	if maxByMemory > 0 && maxByMemory < optimal {
		return maxByMemory
	}
	return optimal
}

// clampBatchSize keeps size between 1 and ceiling
func clampBatchSize(size, ceiling int) int {
	if size < 1 {
		size = 1
	}
	if ceiling > 0 && size > ceiling {
		return ceiling
	}
	return size
}
