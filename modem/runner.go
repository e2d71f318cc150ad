package modem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sirupsen/logrus"
)

// CommandRunner serializes access to the single-outstanding-command
// invariant: only one AT command may be in flight on the physical link at
// a time.
type CommandRunner struct {
	ctx *ModemContext
}

// Lock acquires the command lock, blocking until it is free or ctx is
// cancelled. The returned Guard must be released with Unlock.
func (r *CommandRunner) Lock(ctx context.Context) (*Guard, error) {
	select {
	case <-r.ctx.commandLock:
		return &Guard{ctx: r.ctx, id: uuid.NewString()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Guard is held for the duration of exactly one outstanding command. Each
// Guard is tagged with a short correlation id so log lines from
// concurrent callers can be told apart.
type Guard struct {
	ctx *ModemContext
	id  string
}

// ID returns this guard's correlation id.
func (g *Guard) ID() string { return g.id }

// Unlock releases the command lock, permitting the next waiter through.
func (g *Guard) Unlock() {
	g.ctx.commandLock <- struct{}{}
}

// SendRequest enqueues cmd for TxPump to write to the modem.
func (g *Guard) SendRequest(ctx context.Context, cmd atproto.RawCommand) error {
	select {
	case g.ctx.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendBytes enqueues a raw binary payload (a CIPSEND body), split across
// as many Binary frames as the command size limit requires. The caller
// must still hold the guard for the whole payload.
func (g *Guard) SendBytes(ctx context.Context, payload []byte) error {
	for len(payload) > 0 {
		n := len(payload)
		if n > atproto.MaxCommandBytes {
			n = atproto.MaxCommandBytes
		}
		if err := g.SendRequest(ctx, atproto.BinaryPayload(payload[:n])); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// recvResponse waits for the next response RxPump delivered to the
// generic-response channel.
func (g *Guard) recvResponse(ctx context.Context) (atproto.ResponseCode, error) {
	select {
	case resp := <-g.ctx.genericResponse:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readTerminal waits for the single terminal response a plain command
// produces: GenericOk collapses to (nil, nil), SimError becomes a Go
// error, and anything else (a payload response with no trailing OK
// expected) is returned as-is.
func (g *Guard) readTerminal(ctx context.Context) (atproto.ResponseCode, error) {
	resp, err := g.recvResponse(ctx)
	if err != nil {
		return nil, err
	}
	if sim, ok := resp.(atproto.SimError); ok {
		return nil, simError(sim)
	}
	if _, ok := resp.(atproto.GenericOk); ok {
		return nil, nil
	}
	return resp, nil
}

// Run sends cmd and waits for its terminal response.
func (g *Guard) Run(ctx context.Context, cmd atproto.RawCommand) (atproto.ResponseCode, error) {
	if err := g.SendRequest(ctx, cmd); err != nil {
		return nil, err
	}
	return g.readTerminal(ctx)
}

// RunWithTimeout is Run bounded by an explicit deadline, surfacing an
// expired deadline as modem.ErrTimeout rather than context.DeadlineExceeded
// so callers can match it against the package's error taxonomy.
func (g *Guard) RunWithTimeout(ctx context.Context, cmd atproto.RawCommand, timeout time.Duration) (atproto.ResponseCode, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := g.Run(cctx, cmd)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrTimeout()
	}
	return resp, err
}

// Expect receives responses until one is of type T, which it returns. A
// SimError aborts with an error; any other variant is logged and skipped,
// so a late response left over from a previously timed-out command drains
// here instead of poisoning this one.
func Expect[T atproto.ResponseCode](ctx context.Context, g *Guard) (T, error) {
	var zero T
	for {
		resp, err := g.recvResponse(ctx)
		if err != nil {
			return zero, err
		}
		if sim, ok := resp.(atproto.SimError); ok {
			return zero, simError(sim)
		}
		if payload, ok := resp.(T); ok {
			return payload, nil
		}
		logrus.WithFields(logrus.Fields{
			"guard":    g.id,
			"expected": fmt.Sprintf("%T", zero),
			"got":      fmt.Sprintf("%T", resp),
		}).Warn("modem: skipping unexpected response")
	}
}

// ExpectResponse sends cmd, waits for a response of type T, then drains
// the command's trailing terminal OK/ERROR. Used for commands that report
// one payload line before OK (AT+CSQ, AT+CCID, AT+CIFSREX, and similarly
// shaped queries).
func ExpectResponse[T atproto.ResponseCode](ctx context.Context, g *Guard, cmd atproto.RawCommand) (T, error) {
	var zero T
	if err := g.SendRequest(ctx, cmd); err != nil {
		return zero, err
	}
	payload, err := Expect[T](ctx, g)
	if err != nil {
		return zero, err
	}
	if _, err := Expect[atproto.GenericOk](ctx, g); err != nil {
		return zero, err
	}
	return payload, nil
}

// Run2 is ExpectResponse generalized to two distinguishable responses in
// order, for commands the sim7000 answers with two separate lines
// (e.g. an immediate OK followed by a deferred status line).
func Run2[A, B atproto.ResponseCode](ctx context.Context, g *Guard, cmd atproto.RawCommand) (A, B, error) {
	var zeroA A
	var zeroB B
	if err := g.SendRequest(ctx, cmd); err != nil {
		return zeroA, zeroB, err
	}
	a, err := Expect[A](ctx, g)
	if err != nil {
		return zeroA, zeroB, err
	}
	b, err := Expect[B](ctx, g)
	if err != nil {
		return zeroA, zeroB, err
	}
	return a, b, nil
}
