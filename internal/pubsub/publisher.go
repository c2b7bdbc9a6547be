package pubsub

import (
	"errors"
	"sync"

	"github.com/alanbriolat/nowplaying-dl/generic"
	"github.com/alanbriolat/nowplaying-dl/internal/sync_"
)

const (
	DefaultPublisherBufSize  = 16
	DefaultSubscriberBufSize = 16
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

// A Publisher fans every sent message out to all of its subscribers, in order.
type Publisher[T any] interface {
	SenderCloser[T]
	AddSubscriber(SenderCloser[T]) error
	// Subscribe returns a lossy subscription, so a slow subscriber can never block the publisher.
	Subscribe() (ReceiverCloser[T], error)
	SubscribeBufSize(int) (ReceiverCloser[T], error)
	// Flush waits until every message sent so far has been delivered to all subscribers.
	Flush()
}

type publisher[T any] struct {
	mu          sync.Mutex
	ch          Channel[T]
	running     sync.WaitGroup // Dispatch goroutine
	pending     sync.WaitGroup // Messages not yet sent to all subscribers
	subscribers *sync_.Mutexed[generic.Set[SenderCloser[T]]]
	closed      bool
}

func NewPublisher[T any]() Publisher[T] {
	return NewPublisherBufSize[T](DefaultPublisherBufSize)
}

func NewPublisherBufSize[T any](bufSize int) Publisher[T] {
	p := &publisher[T]{
		ch:          NewChannel[T](bufSize),
		subscribers: sync_.NewMutexed[generic.Set[SenderCloser[T]]](generic.NewSet[SenderCloser[T]]()),
	}
	p.running.Add(1)
	go p.dispatch()
	return p
}

func (p *publisher[T]) dispatch() {
	defer p.running.Done()
	for v := range p.ch.Receive() {
		// Copy the subscriber set so that subscribing isn't blocked by a slow Send
		var subscriberSlice []SenderCloser[T]
		_ = p.subscribers.Locked(func(subscribers *generic.Set[SenderCloser[T]]) error {
			subscriberSlice = (*subscribers).ToSlice()
			return nil
		})
		for _, s := range subscriberSlice {
			if ok := s.Send(v); !ok {
				p.unsubscribe(s)
			}
		}
		p.pending.Done()
	}
}

// Send will publish the value to all subscribers.
func (p *publisher[T]) Send(msg T) bool {
	p.pending.Add(1)
	if ok := p.ch.Send(msg); !ok {
		p.pending.Done()
		return false
	}
	return true
}

func (p *publisher[T]) Flush() {
	p.pending.Wait()
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	return p.SubscribeBufSize(DefaultSubscriberBufSize)
}

func (p *publisher[T]) SubscribeBufSize(bufSize int) (ReceiverCloser[T], error) {
	s := NewLossyChannel[T](bufSize)
	if err := p.AddSubscriber(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *publisher[T]) AddSubscriber(s SenderCloser[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	return p.subscribers.Locked(func(subscribers *generic.Set[SenderCloser[T]]) error {
		(*subscribers).Add(s)
		return nil
	})
}

func (p *publisher[T]) unsubscribe(s SenderCloser[T]) {
	_ = p.subscribers.Locked(func(subscribers *generic.Set[SenderCloser[T]]) error {
		(*subscribers).Remove(s)
		return nil
	})
}

// Close idempotently shuts down the publisher, closing all subscribers too.
func (p *publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// Flush what was already sent before closing subscribers
	p.ch.Close()
	p.pending.Wait()
	p.running.Wait()
	var subscriberSlice []SenderCloser[T]
	_ = p.subscribers.Locked(func(subscribers *generic.Set[SenderCloser[T]]) error {
		subscriberSlice = (*subscribers).ToSlice()
		(*subscribers).Clear()
		return nil
	})
	for _, s := range subscriberSlice {
		s.Close()
	}
	p.closed = true
}

func (p *publisher[T]) Closed() <-chan struct{} {
	return p.ch.Closed()
}
