package pubsub

import (
	"sync"
)

type Sender[T any] interface {
	Send(T) bool
}

type Receiver[T any] interface {
	Receive() <-chan T
}

type Closer interface {
	Close()
	// Closed returns a channel that is closed once Close has completed.
	Closed() <-chan struct{}
}

type SenderCloser[T any] interface {
	Sender[T]
	Closer
}

type ReceiverCloser[T any] interface {
	Receiver[T]
	Closer
}

type Channel[T any] interface {
	Sender[T]
	Receiver[T]
	Closer
}

// channel wraps a primitive `chan` in some concurrency-safe state management.
type channel[T any] struct {
	mu      sync.RWMutex
	ch      chan T
	done    chan struct{}
	closed  chan struct{}
	lossy   bool
	waiting sync.WaitGroup
}

// NewChannel creates a new channel of the specified type and buffer size. Send blocks while the buffer is full.
func NewChannel[T any](bufSize int) Channel[T] {
	return newChannel[T](bufSize, false)
}

// NewLossyChannel creates a channel whose Send never blocks: messages that don't fit in the buffer are dropped.
func NewLossyChannel[T any](bufSize int) Channel[T] {
	return newChannel[T](bufSize, true)
}

func newChannel[T any](bufSize int, lossy bool) *channel[T] {
	return &channel[T]{
		ch:     make(chan T, bufSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		lossy:  lossy,
	}
}

// Receive returns a channel receiver for awaiting the next message.
func (c *channel[T]) Receive() <-chan T {
	return c.ch
}

// Send will attempt to send a message on the channel, returning true if successful, or false if the channel is closed.
// A lossy channel also returns true for a dropped message.
func (c *channel[T]) Send(msg T) bool {
	// Either the send is never attempted, or Close() waits until it has finished
	c.mu.RLock()
	select {
	case <-c.done:
		c.mu.RUnlock()
		return false
	default:
		c.waiting.Add(1)
		defer c.waiting.Done()
		c.mu.RUnlock()
	}

	if c.lossy {
		select {
		case c.ch <- msg:
		case <-c.done:
			return false
		default:
		}
		return true
	}
	select {
	case c.ch <- msg:
		return true
	case <-c.done:
		return false
	}
}

// Close idempotently ends the channel so that all current and future Send calls will fail.
func (c *channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	// Stop any waiting senders, wait for them to exit, then notify receivers
	close(c.done)
	c.waiting.Wait()
	close(c.ch)
	close(c.closed)
}

func (c *channel[T]) Closed() <-chan struct{} {
	return c.closed
}
