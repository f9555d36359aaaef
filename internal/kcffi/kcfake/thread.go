package kcfake

import "runtime"

// Thread runs functions on an OS thread that no other goroutine uses while
// it is running, so tests can drive one handle from distinct threads.
type Thread struct {
	fns  chan func()
	done chan struct{}
}

func StartThread() *Thread {
	t := &Thread{fns: make(chan func()), done: make(chan struct{})}
	go func() {
		// Never unlocked: the thread is torn down when the goroutine exits
		// instead of being handed to other goroutines.
		runtime.LockOSThread()
		defer close(t.done)
		for fn := range t.fns {
			fn()
		}
	}()
	return t
}

// Run calls fn on the thread and waits for it to return.
func (t *Thread) Run(fn func()) {
	finished := make(chan struct{})
	t.fns <- func() {
		defer close(finished)
		fn()
	}
	<-finished
}

func (t *Thread) Stop() {
	close(t.fns)
	<-t.done
}
