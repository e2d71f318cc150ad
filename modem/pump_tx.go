package modem

import (
	"context"

	"github.com/sirupsen/logrus"
)

// TxPump drains ctx.commands and writes each one to the modem's transmit
// pipe. Writes are treated as infallible from this pump's point of view;
// a failed physical write surfaces through IoPump instead.
type TxPump struct {
	ctx *ModemContext
	log logrus.FieldLogger
}

// NewTxPump binds a TxPump to ctx.
func NewTxPump(ctx *ModemContext, log logrus.FieldLogger) *TxPump {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TxPump{ctx: ctx, log: log}
}

// Run pumps commands until ctx is cancelled.
func (p *TxPump) Run(ctx context.Context) error {
	for {
		select {
		case cmd := <-p.ctx.commands:
			if cmd.Binary {
				p.log.WithField("bytes", len(cmd.Bytes())).Debug("write binary payload to modem")
			} else {
				p.log.WithField("command", cmd.String()).Debug("write command to modem")
			}
			if _, err := p.ctx.txPipe.Write(ctx, cmd.Bytes()); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
