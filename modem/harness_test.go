package modem_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/sim7000-go/sim7000/modem"
)

// fakeSerial is an in-memory stand-in for the physical UART: the test
// plays the part of the modem, reading commands off tx and pushing
// response bytes into rx.
type fakeSerial struct {
	rx     chan []byte // modem -> driver
	tx     chan []byte // driver -> modem
	closed chan struct{}
	rbuf   []byte
}

func newFakeSerial() *fakeSerial {
	return &fakeSerial{
		rx:     make(chan []byte, 64),
		tx:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeSerial) Read(p []byte) (int, error) {
	if len(f.rbuf) == 0 {
		select {
		case b, ok := <-f.rx:
			if !ok {
				return 0, io.EOF
			}
			f.rbuf = b
		case <-f.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, f.rbuf)
	f.rbuf = f.rbuf[n:]
	return n, nil
}

func (f *fakeSerial) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	select {
	case f.tx <- b:
		return len(p), nil
	case <-f.closed:
		return 0, io.EOF
	}
}

// harness runs the full pump stack over a fakeSerial with the power state
// already On.
type harness struct {
	mc     *modem.ModemContext
	serial *fakeSerial
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mc := modem.NewModemContext()
	fs := newFakeSerial()
	ctx, cancel := context.WithCancel(context.Background())
	log := quietLogger()

	ioPump := modem.NewIoPump(mc, fs, mc.Power().Subscribe(), log)
	rxPump := modem.NewRxPump(mc, log)
	txPump := modem.NewTxPump(mc, log)
	dropPump := modem.NewDropPump(mc, mc.Power().Subscribe(), log)

	go ioPump.Run(ctx, modem.PowerOff)     //nolint:errcheck
	go rxPump.Run(ctx)                     //nolint:errcheck
	go txPump.Run(ctx)                     //nolint:errcheck
	go dropPump.Run(ctx, modem.PowerOff)   //nolint:errcheck

	mc.Power().Update(modem.PowerOn)

	t.Cleanup(func() {
		cancel()
		close(fs.closed)
	})
	return &harness{mc: mc, serial: fs}
}

// expectWrite accumulates driver output until it ends in want, failing the
// test if something else (or nothing) arrives within the deadline.
func (h *harness) expectWrite(t *testing.T, want string) {
	t.Helper()
	var got bytes.Buffer
	deadline := time.After(2 * time.Second)
	for {
		if bytes.HasSuffix(got.Bytes(), []byte(want)) {
			return
		}
		select {
		case b := <-h.serial.tx:
			got.Write(b)
		case <-deadline:
			require.Failf(t, "expected write never arrived", "want suffix %q, got %q", want, got.String())
		}
	}
}

// reply pushes one CRLF-terminated line from the fake modem.
func (h *harness) reply(lines ...string) {
	for _, line := range lines {
		h.serial.rx <- []byte(line + "\r\n")
	}
}

// replyRaw pushes bytes with no framing at all.
func (h *harness) replyRaw(b []byte) {
	h.serial.rx <- b
}
