package session

import (
	"context"

	"github.com/alanbriolat/nowplaying-dl/internal/sync_"
)

// A GuardToken identifies one acquisition of a Guard.
type GuardToken uint64

type guardState struct {
	inFlight   bool
	generation GuardToken
}

// Guard is the single "download in flight" flag. Acquisition is an atomic check-and-set; a release only has an effect
// if it belongs to the current generation, so a download orphaned by Reset can never release a later one.
type Guard struct {
	state *sync_.Mutexed[guardState]
	idle  *sync_.Event
}

func NewGuard() *Guard {
	return &Guard{
		state: sync_.NewMutexed(guardState{}),
		idle:  sync_.NewSetEvent(),
	}
}

// TryAcquire moves the guard from Idle to InFlight. Returns false if a download is already in flight.
func (g *Guard) TryAcquire() (GuardToken, bool) {
	var token GuardToken
	acquired := false
	_ = g.state.Locked(func(s *guardState) error {
		if s.inFlight {
			return nil
		}
		s.inFlight = true
		s.generation++
		token = s.generation
		acquired = true
		g.idle.Clear()
		return nil
	})
	return token, acquired
}

// Release returns the guard to Idle if token is from the current acquisition. Returns true if it did.
func (g *Guard) Release(token GuardToken) bool {
	released := false
	_ = g.state.Locked(func(s *guardState) error {
		if !s.inFlight || s.generation != token {
			return nil
		}
		s.inFlight = false
		released = true
		g.idle.Set()
		return nil
	})
	return released
}

// Reset forces the guard to Idle regardless of who holds it. Returns true if a download was in flight.
func (g *Guard) Reset() bool {
	wasInFlight := false
	_ = g.state.Locked(func(s *guardState) error {
		wasInFlight = s.inFlight
		s.inFlight = false
		g.idle.Set()
		return nil
	})
	return wasInFlight
}

// InFlight returns true between an acquisition and its release or reset.
func (g *Guard) InFlight() bool {
	return !g.idle.IsSet()
}

// WaitIdle blocks until the guard is Idle or ctx is done.
func (g *Guard) WaitIdle(ctx context.Context) error {
	return g.idle.WaitContext(ctx)
}
