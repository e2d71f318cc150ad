package modem

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ioChunkSize is the scratch buffer size used in both directions of the
// physical link.
const ioChunkSize = 256

// IoPump bridges the physical serial link to the context's txPipe/rxPipe,
// pausing all physical I/O while the modem is asleep or powered off.
type IoPump struct {
	ctx   *ModemContext
	io    io.ReadWriter
	power *RingChannel[PowerState]
	log   logrus.FieldLogger
}

// NewIoPump binds an IoPump to the physical transport rw and a power
// state subscription.
func NewIoPump(ctx *ModemContext, rw io.ReadWriter, power *RingChannel[PowerState], log logrus.FieldLogger) *IoPump {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &IoPump{ctx: ctx, io: rw, power: power, log: log}
}

// Run alternates between high-power (actively pumping bytes) and
// low-power (idle, waiting for a power transition) operation until ctx is
// cancelled.
func (p *IoPump) Run(ctx context.Context, initial PowerState) error {
	state := initial
	for {
		var err error
		if state == PowerOn {
			state, err = p.highPowerPump(ctx)
		} else {
			state, err = p.lowPowerPump(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// nextPowerState waits for the next power transition, transparently
// retrying past a lagged subscription (the pump only cares about the
// latest state, never the history of states it missed).
func (p *IoPump) nextPowerState(ctx context.Context) (PowerState, error) {
	for {
		state, err := p.power.Recv(ctx)
		if errors.Is(err, ErrLagged) {
			continue
		}
		return state, err
	}
}

// highPowerPump actively forwards bytes in both directions until the
// power state changes away from On or either direction's I/O fails.
func (p *IoPump) highPowerPump(ctx context.Context) (PowerState, error) {
	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		buf := make([]byte, ioChunkSize)
		for {
			n, err := p.ctx.txPipe.Read(hctx, buf)
			if err != nil {
				errCh <- err
				return
			}
			if _, err := p.io.Write(buf[:n]); err != nil {
				errCh <- errors.Wrap(err, "modem: serial write failed")
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, ioChunkSize)
		for {
			n, err := p.io.Read(buf)
			if err != nil {
				errCh <- errors.Wrap(err, "modem: serial read failed")
				return
			}
			p.log.WithField("bytes", n).Trace("read from serial")
			if _, err := p.ctx.rxPipe.Write(hctx, buf[:n]); err != nil {
				errCh <- err
				return
			}
		}
	}()

	powerCh := make(chan PowerState, 1)
	go func() {
		state, err := p.nextPowerState(hctx)
		if err == nil {
			powerCh <- state
		}
	}()

	select {
	case state := <-powerCh:
		return state, nil
	case err := <-errCh:
		return PowerOff, &Error{Kind: KindSerial, cause: err}
	case <-ctx.Done():
		return PowerOff, ctx.Err()
	}
}

// lowPowerPump does nothing but wait for the modem to wake back up; no
// physical I/O happens while asleep or off.
func (p *IoPump) lowPowerPump(ctx context.Context) (PowerState, error) {
	return p.nextPowerState(ctx)
}
