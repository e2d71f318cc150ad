// Package gnss exposes the modem's satellite positioning subsystem: a
// claimable handle delivering +UGNSINF reports, plus XTRA assisted-GPS
// seeding (download and cold start).
package gnss

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/modem"
)

// ErrClaimed is returned by Claim when another handle already owns the
// GNSS subsystem; the modem has exactly one.
var ErrClaimed = errors.New("gnss: already claimed")

// urcPeriod is how often, in fix intervals, the modem emits a +UGNSINF
// URC once GNSS is powered on.
const urcPeriod = 4

// Gnss is a claimed handle on the modem's GNSS subsystem. Reports arrive
// via the URC signal the RxPump latches; Close powers the subsystem back
// down through the drop channel.
type Gnss struct {
	signal *modem.StateSignal[atproto.GnssReport]
	drop   *modem.AsyncDrop
}

// Claim takes the GNSS slot and powers the subsystem on: CGNSPWR, URC
// reporting every urcPeriod fixes, and all of GLONASS/BeiDou/Galileo
// started alongside GPS (Galileo is off by default on this hardware).
// Returns ErrClaimed if a live handle already exists.
func Claim(ctx context.Context, mc *modem.ModemContext) (*Gnss, error) {
	signal, ok := mc.ClaimGNSS()
	if !ok {
		return nil, ErrClaimed
	}
	drop := modem.NewAsyncDrop(mc, modem.DropMessage{Kind: modem.DropGnss})

	runner := mc.Commands()
	steps := []atproto.RawCommand{
		atproto.SetGnssPower(true),
		atproto.ConfigureGnssUrc(urcPeriod),
		atproto.SetGnssWorkMode(atproto.GnssWorkStart, atproto.GnssWorkStart, atproto.GnssWorkStart),
	}
	for _, cmd := range steps {
		guard, err := runner.Lock(ctx)
		if err != nil {
			drop.Close()
			return nil, err
		}
		_, err = guard.Run(ctx, cmd)
		guard.Unlock()
		if err != nil {
			drop.Close()
			return nil, err
		}
	}

	return &Gnss{signal: signal, drop: drop}, nil
}

// Report blocks for the next +UGNSINF report.
func (g *Gnss) Report(ctx context.Context) (atproto.GnssReport, error) {
	return g.signal.Wait(ctx)
}

// Latest returns the most recent report without blocking; the zero report
// (quality GnssNotEnabled) until the first URC arrives.
func (g *Gnss) Latest() atproto.GnssReport {
	return g.signal.Get()
}

// Close enqueues the deferred power-down of the GNSS subsystem; the slot
// is released once the DropPump has run AT+CGNSPWR=0. Safe to call more
// than once.
func (g *Gnss) Close() {
	g.drop.Close()
}
