// Package parallel fans CPU kernel loops out over goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how loops are split across workers.
type Config struct {
	Workers  int // Number of goroutines; <= 1 runs sequentially.
	MinChunk int // Minimum iterations per goroutine to avoid overhead.
}

// Default returns a Config sized to the machine.
func Default() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinChunk: 4, // One iteration is a whole feature plane.
	}
}

// Sequential returns a Config that never spawns goroutines.
func Sequential() Config {
	return Config{Workers: 1}
}

// For executes f(i) for i in [0, n).
// Falls back to a plain loop when the work is too small to split.
func (c Config) For(n int, f func(i int)) {
	if c.Workers <= 1 || n < 2*max(c.MinChunk, 1) {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := max((n+c.Workers-1)/c.Workers, c.MinChunk)

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForPlanes executes f for every (batch, channel) plane of an NCHW tensor.
func (c Config) ForPlanes(batch, channels int, f func(n, ch int)) {
	c.For(batch*channels, func(k int) {
		f(k/channels, k%channels)
	})
}
