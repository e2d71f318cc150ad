package modem

import (
	"context"
	"sync"

	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sirupsen/logrus"
)

// DropMessage is the payload of an "asynchronous drop": a cleanup action
// deferred onto ModemContext.dropChannel instead of running synchronously
// when a claimed resource handle is closed.
type DropMessage struct {
	Kind       DropKind
	Connection int
}

// DropKind distinguishes the two resources this driver ever needs to
// asynchronously release.
type DropKind int

const (
	DropConnection DropKind = iota
	DropGnss
)

// Run issues the modem-side command needed to actually tear down the
// resource (CIPCLOSE for a connection, CGNSPWR=0 for GNSS). A SimError
// response is tolerated: the remote end may have already closed the
// connection, in which case the modem legitimately reports an error.
func (d DropMessage) Run(ctx context.Context, guard *Guard) error {
	switch d.Kind {
	case DropConnection:
		_, err := guard.Run(ctx, atproto.CloseConnection(d.Connection))
		if err != nil && !IsSimError(err) {
			return err
		}
		return nil
	case DropGnss:
		_, err := guard.Run(ctx, atproto.SetGnssPower(false))
		return err
	default:
		return nil
	}
}

// CleanUp releases the slot the dropped resource held, regardless of
// whether Run succeeded.
func (d DropMessage) CleanUp(c *ModemContext) {
	switch d.Kind {
	case DropConnection:
		c.ReleaseTCPSlot(d.Connection)
	case DropGnss:
		c.ReleaseGNSS()
	}
}

// AsyncDrop enqueues message onto the context's drop channel exactly
// once, the moment Close is called, and never blocks the caller. Every
// resource handle (TcpStream, Gnss, Voltage) must call Close explicitly;
// see each type's own Close method.
type AsyncDrop struct {
	once    sync.Once
	ctx     *ModemContext
	message DropMessage
}

// NewAsyncDrop builds a guard that will enqueue message on first Close.
func NewAsyncDrop(ctx *ModemContext, message DropMessage) *AsyncDrop {
	return &AsyncDrop{ctx: ctx, message: message}
}

// Close enqueues the drop message. Safe to call more than once; only the
// first call has any effect.
func (d *AsyncDrop) Close() {
	d.once.Do(func() {
		select {
		case d.ctx.dropChannel <- d.message:
		default:
			logrus.WithField("message", d.message).Error("drop channel full, dropping cleanup message")
		}
	})
}
