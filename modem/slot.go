package modem

import "sync/atomic"

// Slot is a single claim/release guarded resource slot: at most one caller
// may hold the claim at a time. atomic.Bool.CompareAndSwap gives the
// claim-exactly-once guarantee without any lock.
type Slot[T any] struct {
	claimed atomic.Bool
	inner   T
}

// NewSlot wraps inner in an initially-unclaimed Slot.
func NewSlot[T any](inner T) *Slot[T] {
	return &Slot[T]{inner: inner}
}

// Claim atomically takes the slot. ok is false if it was already claimed.
func (s *Slot[T]) Claim() (value *T, ok bool) {
	if s.claimed.CompareAndSwap(false, true) {
		return &s.inner, true
	}
	return nil, false
}

// Peek returns the inner value without affecting the claim.
func (s *Slot[T]) Peek() *T {
	return &s.inner
}

// Release clears the claim. It reports false if the slot was not
// claimed, so the caller can log the misuse.
func (s *Slot[T]) Release() (wasClaimed bool) {
	return s.claimed.CompareAndSwap(true, false)
}

// IsClaimed reports the current claim state.
func (s *Slot[T]) IsClaimed() bool {
	return s.claimed.Load()
}
