package modem

import (
	"context"

	"github.com/pkg/errors"
)

// ErrLagged is returned from RingChannel.Recv when this reader fell behind
// and one or more unread values were evicted to make room for newer ones.
var ErrLagged = errors.New("modem: ring channel receiver lagged, oldest message was dropped")

// RingCapacity is the default capacity used for per-slot connection
// event delivery.
const RingCapacity = 8

// RingChannel is a bounded, lossy-oldest queue: Send never blocks the
// producer, evicting the oldest unread value instead once full. A slow
// consumer (an application that isn't reading its TCP socket, say) must
// never be able to stall the RxPump.
type RingChannel[T any] struct {
	ch     chan T
	lagged chan struct{}
}

// NewRingChannel constructs an empty ring channel of the given capacity.
func NewRingChannel[T any](capacity int) *RingChannel[T] {
	return &RingChannel[T]{
		ch:     make(chan T, capacity),
		lagged: make(chan struct{}, 1),
	}
}

// Send enqueues v, evicting the oldest queued value first if full.
func (r *RingChannel[T]) Send(v T) {
	for {
		select {
		case r.ch <- v:
			return
		default:
		}
		select {
		case <-r.ch:
		default:
		}
		select {
		case r.lagged <- struct{}{}:
		default:
		}
	}
}

// Drain discards any values currently queued, without blocking. Used when
// a claimed resource is torn down and its backlog is no longer relevant
// to anyone.
func (r *RingChannel[T]) Drain() {
	for {
		select {
		case <-r.ch:
		default:
			return
		}
	}
}

// Recv blocks for the next value. If this receiver lagged behind since the
// last Recv, it returns ErrLagged once (with a zero value) before
// resuming normal delivery, so callers can detect drops without needing a
// running count of exactly how many were lost.
func (r *RingChannel[T]) Recv(ctx context.Context) (T, error) {
	select {
	case <-r.lagged:
		var zero T
		return zero, ErrLagged
	default:
	}
	select {
	case v := <-r.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
