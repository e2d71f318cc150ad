package modem

import "context"

// PowerDriver models the hardware power-pin operations: toggling the
// modem's power-on and DTR/sleep pins, and resetting it. Each method
// models a multi-second physical sequence, so all take a context for
// cancellation.
type PowerDriver interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Sleep(ctx context.Context) error
	Wake(ctx context.Context) error
	Reset(ctx context.Context) error
	State(ctx context.Context) (PowerState, error)
}

// NopPowerDriver is a PowerDriver that just tracks the state it was last
// told to transition to, with no actual hardware access. Useful for tests
// and for dev boards with the modem hard-wired on.
type NopPowerDriver struct {
	state PowerState
}

// NewNopPowerDriver constructs a driver initially in PowerOff.
func NewNopPowerDriver() *NopPowerDriver {
	return &NopPowerDriver{state: PowerOff}
}

func (d *NopPowerDriver) Enable(ctx context.Context) error {
	d.state = PowerOn
	return nil
}

func (d *NopPowerDriver) Disable(ctx context.Context) error {
	d.state = PowerOff
	return nil
}

func (d *NopPowerDriver) Sleep(ctx context.Context) error {
	d.state = PowerSleeping
	return nil
}

func (d *NopPowerDriver) Wake(ctx context.Context) error {
	d.state = PowerOn
	return nil
}

func (d *NopPowerDriver) Reset(ctx context.Context) error {
	d.state = PowerOn
	return nil
}

func (d *NopPowerDriver) State(ctx context.Context) (PowerState, error) {
	return d.state, nil
}
