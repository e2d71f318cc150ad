package modem

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DropPump processes AsyncDrop cleanup messages. While the modem is
// powered on, each message's modem-side command (AT+CIPCLOSE,
// AT+CGNSPWR=0) runs first, racing any power transition; while off or
// asleep, the command is skipped, since there is no link to send it over.
// Either way CleanUp runs unconditionally once a message is dequeued, so
// a slot can never leak.
type DropPump struct {
	ctx    *ModemContext
	runner *CommandRunner
	power  *RingChannel[PowerState]
	log    logrus.FieldLogger
}

// NewDropPump binds a DropPump to ctx's drop channel, command runner, and
// a power-state subscription.
func NewDropPump(ctx *ModemContext, power *RingChannel[PowerState], log logrus.FieldLogger) *DropPump {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DropPump{ctx: ctx, runner: ctx.Commands(), power: power, log: log}
}

// Run processes drop messages until ctx is cancelled. initial is the
// power state to start in, since a fresh subscription carries no history.
func (p *DropPump) Run(ctx context.Context, initial PowerState) error {
	state := initial

	powerCh := make(chan PowerState, 1)
	go func() {
		for {
			s, err := p.power.Recv(ctx)
			if errors.Is(err, ErrLagged) {
				continue
			}
			if err != nil {
				return
			}
			select {
			case powerCh <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case s := <-powerCh:
			state = s
		case msg := <-p.ctx.dropChannel:
			// The forwarded subscription can trail the signal itself, so
			// the signal's latest published state decides.
			state = p.ctx.Power().Last()
			if state == PowerOn {
				state = p.process(ctx, msg, powerCh)
			} else {
				p.log.WithField("kind", msg.Kind).Debug("modem not on, skipping drop command")
				msg.CleanUp(p.ctx)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// process runs msg's modem-side command, aborting it if the power state
// leaves On mid-flight. CleanUp runs regardless of how the command went.
// Returns the power state as of when processing finished.
func (p *DropPump) process(ctx context.Context, msg DropMessage, powerCh chan PowerState) PowerState {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		guard, err := p.runner.Lock(cctx)
		if err != nil {
			done <- err
			return
		}
		defer guard.Unlock()
		done <- msg.Run(cctx, guard)
	}()

	state := PowerOn
wait:
	for {
		select {
		case err := <-done:
			if err != nil {
				p.log.WithError(err).WithField("kind", msg.Kind).Warn("drop cleanup command failed")
			}
			break wait
		case s := <-powerCh:
			if s == PowerOn {
				continue
			}
			state = s
			cancel()
			<-done
			break wait
		case <-ctx.Done():
			cancel()
			<-done
			break wait
		}
	}

	msg.CleanUp(p.ctx)
	return state
}
