package pubsub

import (
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

var _ Publisher[int] = &publisher[int]{}

func TestChannel(t *testing.T) {
	assert := assert_.New(t)
	ch := NewChannel[int](1)
	assert.True(ch.Send(1))
	sent := make(chan bool)
	go func() { sent <- ch.Send(2) }()
	select {
	case <-sent:
		assert.Fail("send should block while the buffer is full")
	case <-time.After(10 * time.Millisecond):
	}
	assert.Equal(1, <-ch.Receive())
	assert.True(<-sent)
	ch.Close()
	ch.Close()
	assert.False(ch.Send(3))
	<-ch.Closed()
}

func TestLossyChannel(t *testing.T) {
	assert := assert_.New(t)
	ch := NewLossyChannel[int](2)
	for i := 0; i < 5; i++ {
		assert.True(ch.Send(i))
	}
	assert.Equal(0, <-ch.Receive())
	assert.Equal(1, <-ch.Receive())
	select {
	case v := <-ch.Receive():
		assert.Fail("unexpected message", v)
	default:
	}
	ch.Close()
	assert.False(ch.Send(5))
}

func TestPublisher(t *testing.T) {
	assert := assert_.New(t)
	pub := NewPublisher[int]().(*publisher[int])

	// No subscribers is fine
	assert.True(pub.Send(1))
	pub.Flush()

	s1, err := pub.Subscribe()
	assert.Nil(err)
	s2, err := pub.Subscribe()
	assert.Nil(err)
	assert.True(pub.Send(2))
	pub.Flush()
	assert.Equal(2, <-s1.Receive())
	assert.Equal(2, <-s2.Receive())

	// A closed subscriber is dropped, the others keep receiving
	s1.Close()
	assert.True(pub.Send(3))
	pub.Flush()
	_, ok := <-s1.Receive()
	assert.False(ok)
	assert.Equal(3, <-s2.Receive())

	pub.Close()
	_, err = pub.Subscribe()
	assert.Equal(ErrPublisherClosed, err)
	assert.False(pub.Send(4))
	_, ok = <-s2.Receive()
	assert.False(ok, "expected subscriber to be closed by publisher")
	pub.Close()
}

func TestPublisherSlowSubscriber(t *testing.T) {
	assert := assert_.New(t)
	pub := NewPublisher[int]().(*publisher[int])
	slow, err := pub.SubscribeBufSize(1)
	assert.Nil(err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			pub.Send(i)
		}
		pub.Flush()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail("publisher blocked by a subscriber that never reads")
	}
	assert.Equal(0, <-slow.Receive())
	pub.Close()
}
