package compiler

import "context"

// semaphore bounds the number of documents compiled at once.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(v int) *semaphore {
	if v < 1 {
		v = 1
	}
	return &semaphore{
		slots: make(chan struct{}, v),
	}
}

// Acquire blocks until a slot is free or the context ends.
func (self *semaphore) Acquire(ctx context.Context) error {
	select {
	case self.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (self *semaphore) Release() {
	<-self.slots
}
