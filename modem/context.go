package modem

import (
	"github.com/sim7000-go/sim7000/atproto"
)

// MaxTCPSlots bounds how many concurrent TCP connections the multi-IP
// mode can track; the hardware supports eight.
const MaxTCPSlots = 8

// GNSSSlots is the number of concurrent GNSS claims supported: exactly
// one, since the modem has a single GNSS subsystem.
const GNSSSlots = 1

// tcpRxPipeCapacity bounds how many undelivered payload bytes a slot can
// buffer before the RxPump blocks; the modem stops sending once the
// driver stops reading, so this backpressure is load-bearing, not a bug.
const tcpRxPipeCapacity = 3072

// TCPSlotState is the per-connection state a claimed tcpconn.TcpStream
// reads from: raw payload bytes forwarded by RxPump after a
// ReceiveHeader, and connection lifecycle events. Payload delivery is a
// lossless bounded pipe; events are a lossy-oldest ring, since a slow
// event consumer must never stall the RxPump.
type TCPSlotState struct {
	Rx     *Pipe
	Events *RingChannel[atproto.ConnectionMessage]
}

func newTCPSlotState() *TCPSlotState {
	return &TCPSlotState{
		Rx:     NewPipeSize(tcpRxPipeCapacity),
		Events: NewRingChannel[atproto.ConnectionMessage](RingCapacity),
	}
}

// ModemContext is the shared state every pump and every claimed resource
// handle (TcpStream, Gnss, Voltage) reads or writes.
type ModemContext struct {
	// commandLock is a one-token semaphore: Lock receives the token,
	// Unlock returns it. A buffered channel gives select-based,
	// context-cancellable acquisition for free, unlike sync.Mutex.
	commandLock chan struct{}

	commands        chan atproto.RawCommand
	genericResponse chan atproto.ResponseCode
	dropChannel     chan DropMessage

	tcp [MaxTCPSlots]*Slot[*TCPSlotState]

	registration *StateSignal[atproto.NetworkRegistration]
	gnssSlot     *Slot[*StateSignal[atproto.GnssReport]]
	voltageSlot  *Slot[*StateSignal[atproto.VoltageWarning]]

	txPipe *Pipe
	rxPipe *Pipe

	power *PowerSignal
}

// NewModemContext allocates a fresh context with every slot unclaimed.
// The drop channel is sized to hold one message per claimable resource,
// so an AsyncDrop enqueue can never fail.
func NewModemContext() *ModemContext {
	ctx := &ModemContext{
		commandLock:     make(chan struct{}, 1),
		commands:        make(chan atproto.RawCommand, 4),
		genericResponse: make(chan atproto.ResponseCode, 1),
		dropChannel:     make(chan DropMessage, MaxTCPSlots+GNSSSlots),
		registration:    NewStateSignal[atproto.NetworkRegistration](),
		gnssSlot:        NewSlot(NewStateSignal[atproto.GnssReport]()),
		voltageSlot:     NewSlot(NewStateSignal[atproto.VoltageWarning]()),
		txPipe:          NewPipe(),
		rxPipe:          NewPipe(),
		power:           NewPowerSignal(),
	}
	for i := range ctx.tcp {
		ctx.tcp[i] = NewSlot(newTCPSlotState())
	}
	ctx.commandLock <- struct{}{}
	return ctx
}

// Commands returns a CommandRunner bound to this context's command lock
// and channels.
func (c *ModemContext) Commands() *CommandRunner {
	return &CommandRunner{ctx: c}
}

// Power returns the context's power-state broadcaster.
func (c *ModemContext) Power() *PowerSignal {
	return c.power
}

// ClaimTCPSlot finds an unclaimed TCP connection slot and returns its
// ordinal and state, or ok=false if all MaxTCPSlots are in use.
func (c *ModemContext) ClaimTCPSlot() (ordinal int, state *TCPSlotState, ok bool) {
	for i, slot := range c.tcp {
		if v, claimed := slot.Claim(); claimed {
			return i, *v, true
		}
	}
	return 0, nil, false
}

// ReleaseTCPSlot releases a previously claimed ordinal back to the pool.
func (c *ModemContext) ReleaseTCPSlot(ordinal int) {
	c.tcp[ordinal].Release()
}

// ClaimGNSS claims the single GNSS report signal, or ok=false if already
// claimed.
func (c *ModemContext) ClaimGNSS() (signal *StateSignal[atproto.GnssReport], ok bool) {
	v, claimed := c.gnssSlot.Claim()
	if !claimed {
		return nil, false
	}
	return *v, true
}

// ReleaseGNSS releases the GNSS claim.
func (c *ModemContext) ReleaseGNSS() {
	c.gnssSlot.Release()
}

// ClaimVoltage claims the single voltage-warning signal, or ok=false if
// already claimed.
func (c *ModemContext) ClaimVoltage() (signal *StateSignal[atproto.VoltageWarning], ok bool) {
	v, claimed := c.voltageSlot.Claim()
	if !claimed {
		return nil, false
	}
	return *v, true
}

// ReleaseVoltage releases the voltage-warning claim.
func (c *ModemContext) ReleaseVoltage() {
	c.voltageSlot.Release()
}
