package app

import (
	"context"
	"sync/atomic"
)

// sink keeps the stress loop from being optimised away.
var sink atomic.Uint64

// stress burns CPU and allocates until ctx is done, competing with the
// reader for the scheduler and keeping the garbage collector busy.
func stress(ctx context.Context) {
	x := uint64(1)
	var buf []byte
	for ctx.Err() == nil {
		for i := 0; i < 1<<16; i++ {
			x = x*6364136223846793005 + 1442695040888963407
		}
		buf = make([]byte, 64<<10)
		buf[x%uint64(len(buf))] = byte(x)
	}
	sink.Store(x + uint64(len(buf)))
}
