package pubsub

import (
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func notProgress(msg string) bool {
	return !strings.HasPrefix(msg, "progress")
}

func TestFilteredSender_Send(t *testing.T) {
	assert := assert_.New(t)
	ch := NewChannel[string](10)
	filtered := NewFilteredSender[string](ch, notProgress)

	// Every message is accepted, no indication of filtering
	assert.True(filtered.Send("started"))
	assert.True(filtered.Send("progress 1/2"))
	assert.True(filtered.Send("progress 2/2"))
	assert.True(filtered.Send("succeeded"))
	assert.Equal("started", <-ch.Receive())
	assert.Equal("succeeded", <-ch.Receive())
}

func TestFilteredSender_Close(t *testing.T) {
	assert := assert_.New(t)
	ch := NewChannel[string](10)
	filtered := NewFilteredSender[string](ch, notProgress)
	filtered.Close()
	<-ch.Closed()
	assert.False(filtered.Send("started"))

	// Closing the inner sender is seen through the filter too
	ch = NewChannel[string](10)
	filtered = NewFilteredSender[string](ch, nil)
	ch.Close()
	<-filtered.Closed()
	assert.False(filtered.Send("started"))
}

func TestFilteredSender_Publisher(t *testing.T) {
	assert := assert_.New(t)
	pub := NewPublisher[string]()
	ch := NewChannel[string](1)
	assert.Nil(pub.AddSubscriber(NewFilteredSender[string](ch, notProgress)))

	receiverDone := make(chan struct{})
	var received []string
	go func() {
		defer close(receiverDone)
		for v := range ch.Receive() {
			received = append(received, v)
		}
	}()
	for _, msg := range []string{"started", "progress 10", "progress 20", "failed", "started", "succeeded"} {
		pub.Send(msg)
	}
	pub.Close()
	<-receiverDone
	assert.Equal([]string{"started", "failed", "started", "succeeded"}, received)
}
