package modem

import (
	"context"

	"github.com/sim7000-go/sim7000/atproto"
)

// Registration exposes the latched network-registration signal RxPump
// updates whenever it classifies a +CREG/+CGREG/+CEREG line.
type Registration struct {
	signal *StateSignal[atproto.NetworkRegistration]
}

// Registration returns the context's registration tracker.
func (c *ModemContext) Registration() *Registration {
	return &Registration{signal: c.registration}
}

// Current returns the most recently observed registration state without
// blocking.
func (r *Registration) Current() atproto.NetworkRegistration {
	return r.signal.Get()
}

// IsRegistered reports whether status represents either form of successful
// registration (home or roaming network).
func IsRegistered(status atproto.RegistrationStatus) bool {
	return status == atproto.RegisteredHome || status == atproto.RegisteredRoaming
}

// WaitRegistered blocks until the modem reports RegisteredHome or
// RegisteredRoaming on any of the CREG/CGREG/CEREG families, or ctx is
// cancelled.
func (r *Registration) WaitRegistered(ctx context.Context) (atproto.NetworkRegistration, error) {
	return r.signal.CompareWait(ctx, func(n atproto.NetworkRegistration) bool {
		return IsRegistered(n.Status)
	})
}
