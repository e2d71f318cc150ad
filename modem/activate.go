package modem

import (
	"context"
	"time"

	"github.com/sim7000-go/sim7000/atproto"
)

// registrationPollInterval is how often waitForRegistration re-issues
// the query form of the registration command while waiting for the URC
// to latch a terminal status.
const registrationPollInterval = 2 * time.Second

// Activate enables registration URCs, attaches to the network (trying
// each RAT in cfg.Network.Automatic.Priority in turn, or the fixed
// cfg.Network.Manual mode), brings up multi-IP mode, shuts any stale TCP
// contexts, and finally attaches to GPRS under apn.
func Activate(ctx context.Context, mc *ModemContext, power PowerDriver, cfg RegistrationConfig, apn APNConfig) error {
	if err := power.Enable(ctx); err != nil {
		return err
	}
	mc.Power().Broadcaster().Broadcast(PowerOn)

	runner := mc.Commands()

	_ = runRetry(ctx, runner, atproto.SetEcho(false), 5, 2*time.Second)

	if err := configureEDRX(ctx, runner, cfg.EDRX); err != nil {
		return err
	}

	if err := enableRegistrationUrcs(ctx, runner); err != nil {
		return err
	}

	if err := attach(ctx, mc, runner, cfg.Network); err != nil {
		return err
	}

	if err := runRetry(ctx, runner, atproto.EnableMultiIpConnection(true), 3, defaultCommandTimeout); err != nil {
		return err
	}

	// Shutting down is allowed to fail with a SimError (nothing was up).
	if _, err := run(ctx, runner, atproto.ShutConnections()); err != nil && !IsSimError(err) {
		return err
	}

	return authenticate(ctx, runner, apn)
}

func configureEDRX(ctx context.Context, runner *CommandRunner, cfg EDRXConfig) error {
	cmd := atproto.ConfigureEDRX(cfg.Enabled, cfg.ActType, cfg.CycleLength)
	return runRetry(ctx, runner, cmd, 5, defaultCommandTimeout)
}

// enableRegistrationUrcs turns on mode-2 (status + location) URCs for all
// three registration families, so RxPump's NetworkRegistration dispatch
// fires regardless of which RAT family the attached network reports
// through.
func enableRegistrationUrcs(ctx context.Context, runner *CommandRunner) error {
	for _, family := range []string{"CREG", "CGREG", "CEREG"} {
		if err := runRetry(ctx, runner, atproto.ConfigureRegistrationUrc(family, 2), 3, defaultCommandTimeout); err != nil {
			return err
		}
	}
	return nil
}

// attach selects a RAT (or tries each in priority order) and blocks until
// the modem reports Home or Roaming registration.
func attach(ctx context.Context, mc *ModemContext, runner *CommandRunner, mode NetworkMode) error {
	if mode.Manual != nil {
		if err := runRetry(ctx, runner, atproto.SetNetworkMode(mode.Manual.NetworkMode), 3, defaultCommandTimeout); err != nil {
			return err
		}
		if err := runRetry(ctx, runner, atproto.SetNbMode(mode.Manual.NbMode), 3, defaultCommandTimeout); err != nil {
			return err
		}
		return waitForRegistration(ctx, mc, runner, 0)
	}

	auto := DefaultAutomaticMode()
	if mode.Automatic != nil {
		auto = *mode.Automatic
	}

	var lastErr error
	for _, rat := range auto.Priority {
		if err := runRetry(ctx, runner, atproto.SetNetworkMode(rat.cnmpValue()), 3, defaultCommandTimeout); err != nil {
			lastErr = err
			continue
		}
		if err := runRetry(ctx, runner, atproto.SetNbMode(rat.cmnbValue()), 3, defaultCommandTimeout); err != nil {
			lastErr = err
			continue
		}
		if err := waitForRegistration(ctx, mc, runner, auto.Timeout); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = ErrTimeout()
	}
	return lastErr
}

// waitForRegistration re-issues the AT+CGREG? query every
// registrationPollInterval (nudging a modem that stopped
// reporting URCs on its own) until Registered{Home,Roaming} latches or
// timeout elapses. timeout == 0 means wait indefinitely.
func waitForRegistration(ctx context.Context, mc *ModemContext, runner *CommandRunner, timeout time.Duration) error {
	wctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reg := mc.Registration()
	done := make(chan error, 1)
	go func() {
		_, err := reg.WaitRegistered(wctx)
		done <- err
	}()

	ticker := time.NewTicker(registrationPollInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				return ErrTimeout()
			}
			return nil
		case <-ticker.C:
			guard, err := runner.Lock(wctx)
			if err != nil {
				continue
			}
			_, _ = guard.RunWithTimeout(wctx, atproto.GetRegistrationStatus("CGREG"), registrationPollInterval)
			guard.Unlock()
		}
	}
}

// gprsAttachTimeout bounds AT+CIICR; the datasheet specifies an 85-second
// maximum response time.
const gprsAttachTimeout = 86 * time.Second

// authenticate configures the APN and brings up the GPRS bearer. With no
// APN configured, the network-suggested APN (AT+CGNAPN) is used; if the
// network sent none either, activation fails with ErrNoApn.
func authenticate(ctx context.Context, runner *CommandRunner, apn APNConfig) error {
	name := apn.APN
	if name == "" {
		guard, err := runner.Lock(ctx)
		if err != nil {
			return err
		}
		networkApn, err := ExpectResponse[atproto.NetworkApn](ctx, guard, atproto.GetNetworkApn())
		guard.Unlock()
		if err != nil {
			return err
		}
		if networkApn.APN == "" {
			return ErrNoApn()
		}
		name = networkApn.APN
	}

	if err := runRetry(ctx, runner, atproto.StartTask(name, apn.Username, apn.Password), 3, defaultCommandTimeout); err != nil {
		return err
	}

	guard, err := runner.Lock(ctx)
	if err != nil {
		return err
	}
	_, err = guard.RunWithTimeout(ctx, atproto.StartGprs(), gprsAttachTimeout)
	guard.Unlock()
	if err != nil {
		return err
	}

	// Reading the local address back confirms the bearer actually came up.
	guard, err = runner.Lock(ctx)
	if err != nil {
		return err
	}
	_, err = ExpectResponse[atproto.IpExt](ctx, guard, atproto.GetLocalIpExt())
	guard.Unlock()
	return err
}
