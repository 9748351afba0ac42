package dynamo

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ParallelFor splits [0, n) into chunks of at least minChunk indices and
// runs fn on them from up to GOMAXPROCS goroutines. Workers claim chunks in
// order until the range is exhausted.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	minChunk = max(minChunk, 1)
	workers := min(runtime.GOMAXPROCS(0), n/minChunk)
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := max(minChunk, n/(4*workers))

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				start := int(next.Add(int64(chunk))) - chunk
				if start >= n {
					return
				}
				fn(start, min(start+chunk, n))
			}
		}()
	}
	wg.Wait()
}
