package modem

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
)

// defaultCommandTimeout is the per-command deadline used absent an
// explicit override.
const defaultCommandTimeout = 5 * time.Second

// runRetry runs cmd up to attempts times, acquiring and releasing the
// command lock fresh on each try and returning on the first success. The
// sim7000 occasionally swallows a command while still settling after
// power-on, so most configuration commands go through this.
func runRetry(ctx context.Context, runner *CommandRunner, cmd atproto.RawCommand, attempts int, timeout time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		guard, err := runner.Lock(ctx)
		if err != nil {
			return err
		}
		_, err = guard.RunWithTimeout(ctx, cmd, timeout)
		guard.Unlock()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// run locks, runs cmd once, and unlocks.
func run(ctx context.Context, runner *CommandRunner, cmd atproto.RawCommand) (atproto.ResponseCode, error) {
	guard, err := runner.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer guard.Unlock()
	return guard.Run(ctx, cmd)
}

// Init brings the modem up just long enough to burn in its fixed device
// settings (hardware flow control, echo, slow clock, baud rate, error
// verbosity, RI-pin mode, battery check, a fixed RAT when one is
// configured, and eDRX), then powers it back down.
func Init(ctx context.Context, mc *ModemContext, power PowerDriver, cfg RegistrationConfig) error {
	if err := power.Disable(ctx); err != nil {
		return err
	}
	if err := power.Enable(ctx); err != nil {
		return err
	}
	mc.Power().Broadcaster().Broadcast(PowerOn)

	runner := mc.Commands()

	// Flow control is not saved across reboots, and must be restored as
	// fast as possible to avoid dropping bytes; the modem also tends to
	// miss the first command or two while settling after power-on, hence
	// the quick short-timeout retries.
	_ = runRetry(ctx, runner, atproto.SetFlowControl(2, 2), 5, 2*time.Second)
	_ = runRetry(ctx, runner, atproto.SetEcho(false), 5, time.Second)

	steps := []atproto.RawCommand{
		atproto.SetSlowClock(true),
		atproto.At(),
		atproto.SetBaudRate(115200),
		atproto.SetFlowControl(2, 2),
		atproto.ConfigureCMEErrors(1),
	}
	if cfg.Network.Manual != nil {
		steps = append(steps,
			atproto.SetNetworkMode(cfg.Network.Manual.NetworkMode),
			atproto.SetNbMode(cfg.Network.Manual.NbMode),
		)
	}
	steps = append(steps,
		atproto.ConfigureRiPin(1),
		atproto.EnableVBatCheck(true),
	)
	for _, cmd := range steps {
		if err := runRetry(ctx, runner, cmd, 5, defaultCommandTimeout); err != nil {
			return err
		}
	}
	if err := configureEDRX(ctx, runner, cfg.EDRX); err != nil {
		return err
	}

	if err := power.Disable(ctx); err != nil {
		return err
	}
	mc.Power().Broadcaster().Broadcast(PowerOff)
	return nil
}

// Deactivate tears the modem back down to a quiescent, GPRS-detached
// state. It is idempotent: re-running it against an already-shut modem
// just re-observes the same GenericOk/SimError CIPSHUT gives for "nothing
// to shut down".
func Deactivate(ctx context.Context, mc *ModemContext) error {
	runner := mc.Commands()
	_, err := run(ctx, runner, atproto.ShutConnections())
	if err != nil && !IsSimError(err) {
		return err
	}
	return nil
}

// Reset power-cycles the modem via the hardware reset line and re-runs
// Init against the freshly booted device.
func Reset(ctx context.Context, mc *ModemContext, power PowerDriver, cfg RegistrationConfig) error {
	if err := power.Reset(ctx); err != nil {
		return err
	}
	return Init(ctx, mc, power, cfg)
}

// Sleep transitions the modem to its low-power sleep state and broadcasts
// the change so IoPump suspends physical I/O.
func Sleep(ctx context.Context, mc *ModemContext, power PowerDriver) error {
	if err := power.Sleep(ctx); err != nil {
		return err
	}
	mc.Power().Broadcaster().Broadcast(PowerSleeping)
	return nil
}

// Wake transitions the modem back to full power and broadcasts the
// change so IoPump resumes physical I/O.
func Wake(ctx context.Context, mc *ModemContext, power PowerDriver) error {
	if err := power.Wake(ctx); err != nil {
		return err
	}
	mc.Power().Broadcaster().Broadcast(PowerOn)
	return nil
}

// SignalQuality runs AT+CSQ.
func SignalQuality(ctx context.Context, mc *ModemContext) (atproto.SignalQuality, error) {
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return atproto.SignalQuality{}, err
	}
	defer guard.Unlock()
	return ExpectResponse[atproto.SignalQuality](ctx, guard, atproto.GetSignalQuality())
}

// ICCID runs AT+CCID.
func ICCID(ctx context.Context, mc *ModemContext) (atproto.Iccid, error) {
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return atproto.Iccid{}, err
	}
	defer guard.Unlock()
	return ExpectResponse[atproto.Iccid](ctx, guard, atproto.ShowIccid())
}

// IMEI runs AT+CGSN.
func IMEI(ctx context.Context, mc *ModemContext) (atproto.Imei, error) {
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return atproto.Imei{}, err
	}
	defer guard.Unlock()
	return ExpectResponse[atproto.Imei](ctx, guard, atproto.GetImei())
}

// FirmwareVersion runs AT+CGMR.
func FirmwareVersion(ctx context.Context, mc *ModemContext) (atproto.FwVersion, error) {
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return atproto.FwVersion{}, err
	}
	defer guard.Unlock()
	return ExpectResponse[atproto.FwVersion](ctx, guard, atproto.GetFirmwareVersion())
}

// SystemInfo runs AT+CPSI?.
func SystemInfo(ctx context.Context, mc *ModemContext) (atproto.SystemInfo, error) {
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return atproto.SystemInfo{}, err
	}
	defer guard.Unlock()
	return ExpectResponse[atproto.SystemInfo](ctx, guard, atproto.GetSystemInfo())
}

// OperatorInfo runs AT+COPS?.
func OperatorInfo(ctx context.Context, mc *ModemContext) (atproto.OperatorInfo, error) {
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return atproto.OperatorInfo{}, err
	}
	defer guard.Unlock()
	return ExpectResponse[atproto.OperatorInfo](ctx, guard, atproto.GetOperatorInfo())
}

// SyncNTP synchronizes the modem's clock over NTP: it opens GPRS bearer
// profile 1 against the configured APN, binds NTP to it, and executes the
// sync, waiting for the deferred +CNTP completion line.
func SyncNTP(ctx context.Context, mc *ModemContext, apn APNConfig, server string, tzQuarterHours int) error {
	if apn.APN == "" {
		return ErrNoApn()
	}
	guard, err := mc.Commands().Lock(ctx)
	if err != nil {
		return err
	}
	defer guard.Unlock()

	steps := []atproto.RawCommand{
		atproto.SetBearerParam("APN", apn.APN),
		atproto.OpenBearer(),
		atproto.SetNtpBearerProfile(1),
		atproto.ConfigureNtp(server, tzQuarterHours, 1),
	}
	for _, cmd := range steps {
		if _, err := guard.Run(ctx, cmd); err != nil {
			return err
		}
	}

	_, nt, err := Run2[atproto.GenericOk, atproto.NetworkTime](ctx, guard, atproto.ExecuteNtpSync())
	if err != nil {
		return err
	}
	if nt.Code != 1 {
		return errors.Errorf("modem: ntp sync failed with status %d", nt.Code)
	}
	return nil
}
