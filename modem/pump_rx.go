package modem

import (
	"context"

	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sirupsen/logrus"
)

// rxChunkSize bounds how many bytes of a +RECEIVE payload RxPump forwards
// to a TCP slot at a time.
const rxChunkSize = 365

// RxPump owns the modem's inbound byte stream: it reads one line at a
// time, classifies it, and dispatches the result to whichever consumer
// owns it (a TCP slot, the GNSS/voltage signal, the registration signal,
// or the single generic-response channel a CommandRunner.Guard is
// waiting on).
type RxPump struct {
	ctx    *ModemContext
	reader *atproto.LineReader
	log    logrus.FieldLogger
}

// NewRxPump wraps ctx.rxPipe with a line reader and binds it to ctx's
// dispatch targets.
func NewRxPump(ctx *ModemContext, log logrus.FieldLogger) *RxPump {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RxPump{ctx: ctx, reader: atproto.NewLineReader(&pipeReader{ctx: ctx, p: ctx.rxPipe}), log: log}
}

// Run pumps lines until ctx.Done or a non-cancellation read error occurs.
func (p *RxPump) Run(ctx context.Context) error {
	for {
		if err := p.pumpOne(ctx); err != nil {
			return err
		}
	}
}

func (p *RxPump) pumpOne(ctx context.Context) error {
	line, err := p.reader.ReadLine()
	if err != nil {
		return wrapCodecError(err)
	}
	if line == "" {
		p.log.Warn("received empty line from modem")
		return nil
	}

	urc, resp := atproto.Classify(line)
	switch {
	case urc != nil:
		p.dispatchUrc(ctx, urc)
	case resp != nil:
		p.log.WithField("response", resp).Debug("got generic response")
		select {
		case p.ctx.genericResponse <- resp:
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		p.log.WithField("line", line).Error("got unparseable line from modem")
	}
	return nil
}

func (p *RxPump) dispatchUrc(ctx context.Context, u atproto.Urc) {
	switch v := u.(type) {
	case atproto.NetworkRegistration:
		p.log.WithField("status", v.Status).Info("registration status changed")
		p.ctx.registration.Signal(v)
	case atproto.ReceiveHeader:
		p.receiveBytes(ctx, v)
	case atproto.ConnectionMessage:
		if v.Index >= 0 && v.Index < len(p.ctx.tcp) {
			(*p.ctx.tcp[v.Index].Peek()).Events.Send(v)
		}
	case atproto.GnssReport:
		(*p.ctx.gnssSlot.Peek()).Signal(v)
	case atproto.VoltageWarning:
		(*p.ctx.voltageSlot.Peek()).Signal(v)
	case atproto.PowerDown:
		switch v {
		case atproto.PowerDownUnderVoltage:
			(*p.ctx.voltageSlot.Peek()).Signal(atproto.VoltageUnderWarning)
		case atproto.PowerDownOverVoltage:
			(*p.ctx.voltageSlot.Peek()).Signal(atproto.VoltageOverWarning)
		}
	default:
		p.log.WithField("urc", u).Debug("unhandled urc")
	}
}

// receiveBytes reads exactly header.Length raw bytes off the wire (bypassing
// line framing) and forwards them to the owning TCP slot in rxChunkSize
// pieces.
func (p *RxPump) receiveBytes(ctx context.Context, header atproto.ReceiveHeader) {
	remaining := header.Length
	if header.Connection < 0 || header.Connection >= len(p.ctx.tcp) {
		p.log.WithField("connection", header.Connection).Error("receive header for unknown connection")
		return
	}
	slot := p.ctx.tcp[header.Connection]
	chunk := make([]byte, rxChunkSize)
	for remaining > 0 {
		n := remaining
		if n > rxChunkSize {
			n = rxChunkSize
		}
		if err := p.reader.ReadBinary(chunk[:n]); err != nil {
			p.log.WithError(err).Error("failed reading +RECEIVE payload")
			return
		}
		remaining -= n
		if _, err := (*slot.Peek()).Rx.Write(ctx, chunk[:n]); err != nil {
			return
		}
	}
}

// pipeReader adapts a *Pipe to io.Reader, binding the context the pump
// itself is running under.
type pipeReader struct {
	ctx *ModemContext
	p   *Pipe
}

func (r *pipeReader) Read(buf []byte) (int, error) {
	n, err := r.p.Read(context.Background(), buf)
	return n, err
}
