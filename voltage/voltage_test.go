package voltage_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/modem"
	"github.com/sim7000-go/sim7000/voltage"
)

func TestClaimIsExclusive(t *testing.T) {
	mc := modem.NewModemContext()

	w, err := voltage.Claim(mc)
	require.NoError(t, err)

	_, err = voltage.Claim(mc)
	assert.ErrorIs(t, err, voltage.ErrClaimed)

	w.Close()
	w2, err := voltage.Claim(mc)
	require.NoError(t, err)
	w2.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	mc := modem.NewModemContext()
	w, err := voltage.Claim(mc)
	require.NoError(t, err)
	w.Close()
	w.Close()

	_, err = voltage.Claim(mc)
	assert.NoError(t, err)
}

// lineSource feeds canned modem output to the IoPump and discards writes.
type lineSource struct {
	rx     chan []byte
	closed chan struct{}
	rbuf   []byte
}

func (f *lineSource) Read(p []byte) (int, error) {
	if len(f.rbuf) == 0 {
		select {
		case b := <-f.rx:
			f.rbuf = b
		case <-f.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, f.rbuf)
	f.rbuf = f.rbuf[n:]
	return n, nil
}

func (f *lineSource) Write(p []byte) (int, error) { return len(p), nil }

func TestWarningDelivery(t *testing.T) {
	mc := modem.NewModemContext()
	fs := &lineSource{rx: make(chan []byte, 4), closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	log := logrus.New()
	log.SetOutput(io.Discard)

	ioPump := modem.NewIoPump(mc, fs, mc.Power().Subscribe(), log)
	rxPump := modem.NewRxPump(mc, log)
	go ioPump.Run(ctx, modem.PowerOff) //nolint:errcheck
	go rxPump.Run(ctx)                 //nolint:errcheck
	mc.Power().Update(modem.PowerOn)
	t.Cleanup(func() {
		cancel()
		close(fs.closed)
	})

	w, err := voltage.Claim(mc)
	require.NoError(t, err)
	defer w.Close()

	done := make(chan atproto.VoltageWarning, 1)
	go func() {
		warning, err := w.Warning(context.Background())
		if err == nil {
			done <- warning
		}
	}()
	time.Sleep(10 * time.Millisecond)

	fs.rx <- []byte("UNDER-VOLTAGE WARNNING\r\n")

	select {
	case warning := <-done:
		assert.Equal(t, atproto.VoltageUnderWarning, warning)
	case <-time.After(2 * time.Second):
		t.Fatal("warning never delivered")
	}
}
