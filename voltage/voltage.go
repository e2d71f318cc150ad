// Package voltage exposes the modem's supply-voltage warnings as a
// claimable handle: UNDER-VOLTAGE/OVER-VOLTAGE URCs latched by the RxPump
// are delivered to whoever holds the claim.
package voltage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/modem"
)

// ErrClaimed is returned by Claim when another handle already owns the
// voltage-warning slot.
var ErrClaimed = errors.New("voltage: already claimed")

// Warner is a claimed handle on the modem's voltage warnings. Unlike TCP
// streams and GNSS, tearing it down needs no modem-side command; Close
// just releases the slot directly.
type Warner struct {
	signal *modem.StateSignal[atproto.VoltageWarning]
	mc     *modem.ModemContext
	once   sync.Once
}

// Claim takes the voltage-warning slot, or reports ErrClaimed.
func Claim(mc *modem.ModemContext) (*Warner, error) {
	signal, ok := mc.ClaimVoltage()
	if !ok {
		return nil, ErrClaimed
	}
	return &Warner{signal: signal, mc: mc}, nil
}

// Warning blocks until the modem reports the next under- or over-voltage
// condition.
func (w *Warner) Warning(ctx context.Context) (atproto.VoltageWarning, error) {
	return w.signal.Wait(ctx)
}

// Close releases the slot. Safe to call more than once.
func (w *Warner) Close() {
	w.once.Do(func() {
		w.mc.ReleaseVoltage()
	})
}
