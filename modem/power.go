package modem

import "sync"

// PowerState mirrors the modem's three gross power regimes.
type PowerState int

const (
	PowerOff PowerState = iota
	PowerOn
	PowerSleeping
)

func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerSleeping:
		return "sleeping"
	default:
		return "off"
	}
}

// PowerSignal is a pub/sub broadcaster of power state transitions. Every
// subscriber gets its own RingChannel so one slow subscriber can never
// block another, or the broadcaster.
type PowerSignal struct {
	mu          sync.Mutex
	last        PowerState
	subscribers []*RingChannel[PowerState]
}

// NewPowerSignal constructs a signal latched at PowerOff.
func NewPowerSignal() *PowerSignal {
	return &PowerSignal{last: PowerOff}
}

// powerSignalCapacity is small on purpose: subscribers only ever care
// about the latest state or two, never deep history.
const powerSignalCapacity = 2

// Subscribe registers a new listener and returns its ring channel.
func (p *PowerSignal) Subscribe() *RingChannel[PowerState] {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := NewRingChannel[PowerState](powerSignalCapacity)
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// Update publishes state to every current subscriber, unconditionally.
func (p *PowerSignal) Update(state PowerState) {
	p.mu.Lock()
	p.last = state
	subs := make([]*RingChannel[PowerState], len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()
	for _, s := range subs {
		s.Send(state)
	}
}

// Last returns the most recently published state.
func (p *PowerSignal) Last() PowerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Broadcaster returns a change-suppressing publish handle: Broadcast only
// actually publishes when the state differs from the last one it sent,
// mirroring PowerSignalBroadcaster.
func (p *PowerSignal) Broadcaster() *PowerBroadcaster {
	return &PowerBroadcaster{signal: p, last: PowerOff}
}

// PowerBroadcaster is a single-writer handle onto a PowerSignal that
// drops no-op transitions.
type PowerBroadcaster struct {
	signal *PowerSignal
	last   PowerState
}

// Broadcast publishes state if it differs from the last broadcast state.
func (b *PowerBroadcaster) Broadcast(state PowerState) {
	if b.last != state {
		b.last = state
		b.signal.Update(state)
	}
}
