package reactor

import "sync"

// EventLoopThread owns one EventLoop running on its own goroutine,
// publishing the loop pointer once it is constructed (spec.md §4.6).
type EventLoopThread struct {
	loop    *EventLoop
	ready   chan struct{}
	once    sync.Once
	started bool
}

// NewEventLoopThread creates (but does not start) a thread wrapper.
func NewEventLoopThread() *EventLoopThread {
	return &EventLoopThread{ready: make(chan struct{})}
}

// Start spawns the goroutine, blocks until the loop is constructed and
// published, and returns it.
func (t *EventLoopThread) Start() (*EventLoop, error) {
	errCh := make(chan error, 1)
	go func() {
		loop, err := NewEventLoop()
		if err != nil {
			errCh <- err
			close(t.ready)
			return
		}
		t.loop = loop
		t.started = true
		close(t.ready)
		errCh <- nil
		loop.Run()
	}()
	<-t.ready
	if err := <-errCh; err != nil {
		return nil, err
	}
	return t.loop, nil
}

// Loop returns the owned loop, or nil before Start has published it.
func (t *EventLoopThread) Loop() *EventLoop { return t.loop }

// Stop requests the loop to quit.
func (t *EventLoopThread) Stop() {
	if t.loop != nil {
		t.loop.Quit()
	}
}
