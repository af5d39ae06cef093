package poll

import (
	"context"
	"sync"
)

// workerPool bounds how many poll cycles run at once across distinct
// triggers. Serialization within one trigger is handled separately
// by the coordinator's in-flight guard.
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	return &workerPool{sem: make(chan struct{}, size)}
}

func (p *workerPool) submit(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		p.wg.Add(1)
		go func() {
			defer func() {
				<-p.sem
				p.wg.Done()
			}()
			fn()
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait blocks until every submitted poll has finished. Used on
// shutdown so in-flight polls commit their watermarks before the
// process exits.
func (p *workerPool) wait() {
	p.wg.Wait()
}
