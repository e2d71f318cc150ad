package gnss

import (
	"context"
	"time"

	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/modem"
)

// downloadAttempts bounds the HTTPTOFS retry loop: the XTRA servers are
// flaky and the first couple of downloads regularly fail.
const downloadAttempts = 5

const downloadRetryDelay = 200 * time.Millisecond

// DownloadXtra fetches the XTRA assistance file over HTTP onto the
// modem's filesystem. The app-network PDP context is brought up against
// apn first; sync the clock (modem.SyncNTP) before calling this, since
// the file is only valid against correct time.
func DownloadXtra(ctx context.Context, mc *modem.ModemContext, apn modem.APNConfig, url string) error {
	if apn.APN == "" {
		return modem.ErrNoApn()
	}
	runner := mc.Commands()

	guard, err := runner.Lock(ctx)
	if err != nil {
		return err
	}
	_, err = guard.Run(ctx, atproto.SetAppNetwork(atproto.CnactActivate, apn.APN))
	guard.Unlock()
	if err != nil {
		return err
	}

	var lastStatus int
	for i := 0; i < downloadAttempts; i++ {
		if i > 0 {
			select {
			case <-time.After(downloadRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		guard, err := runner.Lock(ctx)
		if err != nil {
			return err
		}
		_, info, err := modem.Run2[atproto.GenericOk, atproto.DownloadInfo](ctx, guard, atproto.DownloadXtra(url))
		guard.Unlock()
		if err != nil {
			return err
		}
		if info.Ok() {
			return nil
		}
		lastStatus = info.Status
	}
	return modem.ErrHttptofs(lastStatus)
}

// ColdStartWithXtra copies the downloaded XTRA file into the GNSS
// subsystem, enables it, and cold-starts against it. Call DownloadXtra
// first.
func ColdStartWithXtra(ctx context.Context, mc *modem.ModemContext) error {
	runner := mc.Commands()

	guard, err := runner.Lock(ctx)
	if err != nil {
		return err
	}
	cp, _, err := modem.Run2[atproto.CopyResponse, atproto.GenericOk](ctx, guard, atproto.CopyXtra())
	guard.Unlock()
	if err != nil {
		return err
	}
	if !cp.Success {
		return modem.ErrXtra(modem.XtraFileDoesntExist)
	}

	guard, err = runner.Lock(ctx)
	if err != nil {
		return err
	}
	_, err = guard.Run(ctx, atproto.ToggleXtraFile(true))
	guard.Unlock()
	if err != nil {
		return err
	}

	guard, err = runner.Lock(ctx)
	if err != nil {
		return err
	}
	_, status, err := modem.Run2[atproto.GenericOk, atproto.XtraStatus](ctx, guard, atproto.ColdStartGnss())
	guard.Unlock()
	if err != nil {
		return err
	}
	switch status.Outcome {
	case atproto.XtraFileMissing:
		return modem.ErrXtra(modem.XtraFileDoesntExist)
	case atproto.XtraNotEffective:
		return modem.ErrXtra(modem.XtraNotEffective)
	}
	return nil
}
