package tcpconn_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sim7000-go/sim7000/modem"
	"github.com/sim7000-go/sim7000/tcpconn"
)

// fakeSerial lets the test play the modem side of the wire.
type fakeSerial struct {
	rx     chan []byte
	tx     chan []byte
	closed chan struct{}
	rbuf   []byte
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

type harness struct {
	mc     *modem.ModemContext
	serial *fakeSerial
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mc := modem.NewModemContext()
	fs := &fakeSerial{rx: make(chan []byte, 64), tx: make(chan []byte, 64), closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	log := logrus.New()
	log.SetOutput(io.Discard)

	ioPump := modem.NewIoPump(mc, fs, mc.Power().Subscribe(), log)
	rxPump := modem.NewRxPump(mc, log)
	txPump := modem.NewTxPump(mc, log)
	dropPump := modem.NewDropPump(mc, mc.Power().Subscribe(), log)
	go ioPump.Run(ctx, modem.PowerOff)   //nolint:errcheck
	go rxPump.Run(ctx)                   //nolint:errcheck
	go txPump.Run(ctx)                   //nolint:errcheck
	go dropPump.Run(ctx, modem.PowerOff) //nolint:errcheck
	mc.Power().Update(modem.PowerOn)

	t.Cleanup(func() {
		cancel()
		close(fs.closed)
	})
	return &harness{mc: mc, serial: fs}
}

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

func (h *harness) reply(lines ...string) {
	for _, line := range lines {
		h.serial.rx <- []byte(line + "\r\n")
	}
}

func (h *harness) replyRaw(b []byte) {
	h.serial.rx <- b
}

func (h *harness) connect(t *testing.T) *tcpconn.TcpStream {
	t.Helper()
	type result struct {
		s   *tcpconn.TcpStream
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := tcpconn.Connect(context.Background(), h.mc, "tcpbin.com", 4242)
		done <- result{s, err}
	}()

	h.expectWrite(t, "AT+CIPSTART=0,\"TCP\",\"tcpbin.com\",\"4242\"\r")
	h.reply("OK", "0, CONNECT OK")

	res := <-done
	require.NoError(t, res.err)
	return res.s
}

func TestConnectSendReceive(t *testing.T) {
	h := newHarness(t)
	stream := h.connect(t)

	payload := []byte("\nFOOBARBAZBOPSHOP\n")

	done := make(chan error, 1)
	go func() {
		_, err := stream.Write(context.Background(), payload)
		done <- err
	}()

	h.expectWrite(t, "AT+CIPSEND=0,18\r")
	h.replyRaw([]byte("\r\n> "))
	h.expectWrite(t, string(payload))
	h.reply("0, SEND OK")
	require.NoError(t, <-done)

	h.reply("+RECEIVE,0,18:")
	h.replyRaw(payload)

	buf := make([]byte, 64)
	read := 0
	for read < len(payload) {
		n, err := stream.Read(context.Background(), buf[read:])
		require.NoError(t, err)
		require.NotZero(t, n)
		read += n
	}
	assert.Equal(t, payload, buf[:read])
}

func TestConnectNoFreeSlots(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < modem.MaxTCPSlots; i++ {
		_, _, ok := h.mc.ClaimTCPSlot()
		require.True(t, ok)
	}

	_, err := tcpconn.Connect(context.Background(), h.mc, "example.com", 80)
	var ce *tcpconn.ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, tcpconn.NoFreeSlots, ce.Kind)
}

func TestConnectRefused(t *testing.T) {
	h := newHarness(t)

	type result struct {
		s   *tcpconn.TcpStream
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := tcpconn.Connect(context.Background(), h.mc, "example.com", 80)
		done <- result{s, err}
	}()

	h.expectWrite(t, "AT+CIPSTART=0,\"TCP\",\"example.com\",\"80\"\r")
	h.reply("OK", "0, CONNECT FAIL")

	res := <-done
	var ce *tcpconn.ConnectError
	require.ErrorAs(t, res.err, &ce)
	assert.Equal(t, tcpconn.ConnectFailed, ce.Kind)

	// The failed attempt's slot is released through the drop channel.
	h.expectWrite(t, "AT+CIPCLOSE=0\r")
	h.reply("ERROR")
	require.Eventually(t, func() bool {
		o, _, ok := h.mc.ClaimTCPSlot()
		if !ok {
			return false
		}
		h.mc.ReleaseTCPSlot(o)
		return o == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRemoteCloseReadsAsEOF(t *testing.T) {
	h := newHarness(t)
	stream := h.connect(t)

	h.reply("0, CLOSED")

	buf := make([]byte, 8)
	n, err := stream.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Zero(t, n, "a closed stream reads as EOF")

	// Once closed is observed it stays closed.
	n, err = stream.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = stream.Write(context.Background(), []byte("x"))
	var te *tcpconn.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tcpconn.ErrClosed, te.Kind)
}

func TestWriteSendFail(t *testing.T) {
	h := newHarness(t)
	stream := h.connect(t)

	done := make(chan error, 1)
	go func() {
		_, err := stream.Write(context.Background(), []byte("hello"))
		done <- err
	}()

	h.expectWrite(t, "AT+CIPSEND=0,5\r")
	h.replyRaw([]byte("\r\n> "))
	h.expectWrite(t, "hello")
	h.reply("0, SEND FAIL")

	err := <-done
	var te *tcpconn.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tcpconn.ErrSendFail, te.Kind)
}

func TestWriteTimeout(t *testing.T) {
	h := newHarness(t)
	stream := h.connect(t)
	stream.SetTimeout(50 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := stream.Write(context.Background(), []byte("hello"))
		done <- err
	}()

	h.expectWrite(t, "AT+CIPSEND=0,5\r")
	h.replyRaw([]byte("\r\n> "))
	h.expectWrite(t, "hello")
	// No SEND OK ever arrives.

	err := <-done
	var te *tcpconn.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tcpconn.ErrTimeout, te.Kind)
}

func TestSplitReaderWriter(t *testing.T) {
	h := newHarness(t)
	stream := h.connect(t)
	r, w := stream.Split()

	writeDone := make(chan error, 1)
	go func() {
		_, err := w.Write(context.Background(), []byte("ping"))
		writeDone <- err
	}()

	h.expectWrite(t, "AT+CIPSEND=0,4\r")
	h.replyRaw([]byte("\r\n> "))
	h.expectWrite(t, "ping")
	h.reply("0, SEND OK")
	require.NoError(t, <-writeDone)

	h.reply("+RECEIVE,0,4:")
	h.replyRaw([]byte("pong"))

	buf := make([]byte, 8)
	n, err := r.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestCloseReleasesSlotThroughDropPump(t *testing.T) {
	h := newHarness(t)
	stream := h.connect(t)

	stream.Close()
	h.expectWrite(t, "AT+CIPCLOSE=0\r")
	h.reply("0, CLOSE OK")

	require.Eventually(t, func() bool {
		o, _, ok := h.mc.ClaimTCPSlot()
		if !ok {
			return false
		}
		h.mc.ReleaseTCPSlot(o)
		return o == 0
	}, 2*time.Second, 10*time.Millisecond, "slot never released after Close")
}
