// Package loop is the UI scheduling primitive. Background goroutines hand
// callbacks to a Poster; exactly one goroutine runs them, in the order they
// were posted.
package loop

import "sync"

// Poster schedules fn to run on the UI goroutine. Post never blocks.
type Poster interface {
	Post(fn func())
}

// Queue is an unbounded FIFO of callbacks.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
}

func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Post appends fn. Callbacks posted after Close are dropped.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, fn)
		q.cond.Signal()
	}
	q.mu.Unlock()
}

// Next blocks until a callback is available. It returns false once the queue
// is closed and drained.
func (q *Queue) Next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	fn := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return fn, true
}

// Len reports the number of pending callbacks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting callbacks. Pending ones are still handed out by Next.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Loop runs queued callbacks on the goroutine that calls Run.
type Loop struct {
	q    *Queue
	quit chan struct{}
	once sync.Once
}

func New() *Loop {
	return &Loop{q: NewQueue(), quit: make(chan struct{})}
}

func (l *Loop) Post(fn func()) { l.q.Post(fn) }

// Run executes callbacks until Quit has been called and every callback posted
// before it has run.
func (l *Loop) Run() {
	for {
		fn, ok := l.q.Next()
		if !ok {
			return
		}
		fn()
	}
}

// Quit makes Run return after the callbacks already queued.
func (l *Loop) Quit() {
	l.once.Do(func() {
		close(l.quit)
		l.q.Close()
	})
}

// Done is closed once Quit has been requested.
func (l *Loop) Done() <-chan struct{} { return l.quit }

// Forwarder decouples posters from a toolkit primitive that may block, such
// as tea.Program.Send. Callbacks are queued without blocking and delivered in
// order from a single goroutine.
type Forwarder struct {
	q    *Queue
	done chan struct{}
}

// Forward starts delivering posted callbacks to deliver.
func Forward(deliver func(fn func())) *Forwarder {
	f := &Forwarder{q: NewQueue(), done: make(chan struct{})}
	go func() {
		defer close(f.done)
		for {
			fn, ok := f.q.Next()
			if !ok {
				return
			}
			deliver(fn)
		}
	}()
	return f
}

func (f *Forwarder) Post(fn func()) { f.q.Post(fn) }

// Close stops accepting callbacks and waits until the pending ones have been
// handed to deliver.
func (f *Forwarder) Close() {
	f.q.Close()
	<-f.done
}
