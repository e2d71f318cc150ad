// Package tcpconn implements the modem's multi-IP TCP client sockets
// (AT+CIPSTART/CIPSEND/CIPCLOSE), layered on top of the modem package's
// shared command runner and per-slot event plumbing.
package tcpconn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
	"github.com/sim7000-go/sim7000/modem"
	"github.com/sirupsen/logrus"
)

// writeChunkSize is the largest single CIPSEND payload the modem accepts.
const writeChunkSize = 1024

// defaultTimeout is the read/write deadline a freshly connected stream
// starts with.
const defaultTimeout = 120 * time.Second

// connectProbeInterval/connectAttempts bound how long Connect waits for
// the modem to settle a CIPSTART: 21 attempts at 6 seconds each, about
// two minutes total, which is when the modem gives up on its own side
// anyway.
const (
	connectProbeInterval = 6 * time.Second
	connectAttempts      = 21
)

// ConnectErrorKind classifies why Connect failed.
type ConnectErrorKind int

const (
	ConnectFailed ConnectErrorKind = iota
	NoFreeSlots
	ConnectOther
	ConnectUnexpected
)

// ConnectError is returned by Connect.
type ConnectError struct {
	Kind       ConnectErrorKind
	Unexpected atproto.ConnectionMessage
	cause      error
}

func (e *ConnectError) Error() string {
	switch e.Kind {
	case ConnectFailed:
		return "tcpconn: connection refused by the network"
	case NoFreeSlots:
		return "tcpconn: no free TCP connection slots"
	case ConnectUnexpected:
		return "tcpconn: modem reported an unexpected connection event"
	default:
		if e.cause != nil {
			return "tcpconn: " + e.cause.Error()
		}
		return "tcpconn: connect failed"
	}
}

func (e *ConnectError) Unwrap() error { return e.cause }

// ErrorKind classifies an error from Read/Write on an established stream.
type ErrorKind int

const (
	ErrTimeout ErrorKind = iota
	ErrSendFail
	ErrClosed
)

// Error is returned by TcpStream/TcpReader/TcpWriter Read/Write.
type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrTimeout:
		return "tcpconn: operation timed out"
	case ErrSendFail:
		return "tcpconn: modem reported a send failure"
	case ErrClosed:
		return "tcpconn: connection closed"
	default:
		return "tcpconn: unknown error"
	}
}

// TcpStream is an established TCP connection over one of the modem's
// MaxTCPSlots connection contexts. A background goroutine watches the
// slot's event ring: send results are forwarded to the writer, while a
// close (or anything unexpected) latches the whole stream closed and
// wakes any blocked reader.
type TcpStream struct {
	ordinal int
	mc      *modem.ModemContext
	state   *modem.TCPSlotState
	drop    *modem.AsyncDrop
	runner  *modem.CommandRunner

	closed    atomic.Bool
	abnormal  atomic.Bool
	closeOnce sync.Once
	closedCh  chan struct{}

	timeout time.Duration

	writerEvents *modem.RingChannel[atproto.ConnectionMessage]
	fanCancel    context.CancelFunc
}

// TcpReader is the read half of a split TcpStream.
type TcpReader struct{ stream *TcpStream }

// TcpWriter is the write half of a split TcpStream.
type TcpWriter struct{ stream *TcpStream }

// Connect claims a TCP slot, issues AT+CIPSTART, and waits for the modem
// to report the connection established. Each 6-second wait for a
// connection event that passes in silence sends a plain AT command to
// confirm the link itself is still alive, for up to about two minutes
// total before giving up.
func Connect(ctx context.Context, mc *modem.ModemContext, host string, port uint16) (*TcpStream, error) {
	ordinal, state, ok := mc.ClaimTCPSlot()
	if !ok {
		return nil, &ConnectError{Kind: NoFreeSlots}
	}

	dropGuard := modem.NewAsyncDrop(mc, modem.DropMessage{Kind: modem.DropConnection, Connection: ordinal})
	runner := mc.Commands()

	if err := runCipstart(ctx, runner, ordinal, host, port); err != nil {
		dropGuard.Close()
		return nil, &ConnectError{Kind: ConnectOther, cause: err}
	}

	for i := 0; i < connectAttempts; i++ {
		wctx, cancel := context.WithTimeout(ctx, connectProbeInterval)
		msg, err := state.Events.Recv(wctx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			if probeErr := runLiveness(ctx, runner); probeErr != nil {
				dropGuard.Close()
				return nil, &ConnectError{Kind: ConnectOther, cause: probeErr}
			}
			continue
		case errors.Is(err, modem.ErrLagged):
			logrus.WithField("ordinal", ordinal).
				Warn("tcpconn: lagged while waiting to establish a connection")
			continue
		case err != nil:
			dropGuard.Close()
			return nil, &ConnectError{Kind: ConnectOther, cause: err}
		}

		switch msg.Message {
		case atproto.EventConnected:
			return newStream(mc, ordinal, state, dropGuard, runner), nil
		case atproto.EventConnectionFailed:
			dropGuard.Close()
			return nil, &ConnectError{Kind: ConnectFailed}
		default:
			dropGuard.Close()
			return nil, &ConnectError{Kind: ConnectUnexpected, Unexpected: msg}
		}
	}

	dropGuard.Close()
	return nil, &ConnectError{Kind: ConnectOther, cause: modem.ErrTimeout()}
}

func newStream(mc *modem.ModemContext, ordinal int, state *modem.TCPSlotState, drop *modem.AsyncDrop, runner *modem.CommandRunner) *TcpStream {
	fanCtx, cancel := context.WithCancel(context.Background())
	s := &TcpStream{
		ordinal:      ordinal,
		mc:           mc,
		state:        state,
		drop:         drop,
		runner:       runner,
		closedCh:     make(chan struct{}),
		timeout:      defaultTimeout,
		writerEvents: modem.NewRingChannel[atproto.ConnectionMessage](modem.RingCapacity),
		fanCancel:    cancel,
	}
	go s.watchEvents(fanCtx)
	return s
}

// markClosed latches the stream closed, recording whether the close was a
// clean remote FIN or something unexpected, and wakes any blocked reader
// or writer. Once set, closed is never observed unset again.
func (s *TcpStream) markClosed(abnormal bool) {
	s.closeOnce.Do(func() {
		s.abnormal.Store(abnormal)
		s.closed.Store(true)
		close(s.closedCh)
	})
}

// watchEvents consumes the slot's event ring for the stream's lifetime:
// send results go to the writer; a close, or any event this state machine
// has no transition for, terminates the stream.
func (s *TcpStream) watchEvents(ctx context.Context) {
	for {
		msg, err := s.state.Events.Recv(ctx)
		if errors.Is(err, modem.ErrLagged) {
			logrus.WithField("ordinal", s.ordinal).
				Warn("tcpconn: missed connection events, this connection may behave unpredictably")
			continue
		}
		if err != nil {
			return
		}
		switch msg.Message {
		case atproto.EventSendSuccess, atproto.EventSendFail:
			s.writerEvents.Send(msg)
		case atproto.EventClosed:
			s.markClosed(false)
			return
		default:
			logrus.WithFields(logrus.Fields{"ordinal": s.ordinal, "event": msg.Message}).
				Warn("tcpconn: unexpected connection event on established stream")
			s.markClosed(true)
			return
		}
	}
}

func runCipstart(ctx context.Context, runner *modem.CommandRunner, ordinal int, host string, port uint16) error {
	guard, err := runner.Lock(ctx)
	if err != nil {
		return err
	}
	defer guard.Unlock()
	_, err = guard.Run(ctx, atproto.Connect(ordinal, host, port))
	return err
}

func runLiveness(ctx context.Context, runner *modem.CommandRunner) error {
	guard, err := runner.Lock(ctx)
	if err != nil {
		return err
	}
	defer guard.Unlock()
	_, err = guard.Run(ctx, atproto.At())
	return err
}

// SetTimeout overrides the read/write deadline; new streams default to
// 120 seconds.
func (s *TcpStream) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// Split returns independent reader and writer halves that may be used
// from different goroutines concurrently. At most one read and one write
// may be in flight at a time.
func (s *TcpStream) Split() (*TcpReader, *TcpWriter) {
	return &TcpReader{stream: s}, &TcpWriter{stream: s}
}

// Write is a convenience wrapper equivalent to splitting and writing on
// the writer half.
func (s *TcpStream) Write(ctx context.Context, buf []byte) (int, error) {
	w := &TcpWriter{stream: s}
	return w.Write(ctx, buf)
}

// Read is a convenience wrapper equivalent to splitting and reading from
// the reader half.
func (s *TcpStream) Read(ctx context.Context, buf []byte) (int, error) {
	r := &TcpReader{stream: s}
	return r.Read(ctx, buf)
}

// Close enqueues an asynchronous CIPCLOSE and stops this stream's event
// watcher; the slot is released once the DropPump has run the close. The
// rx pipe is drained so stale bytes never leak into a future claim of the
// same ordinal. Safe to call more than once.
func (s *TcpStream) Close() {
	s.markClosed(false)
	s.fanCancel()
	s.state.Rx.Drain()
	s.drop.Close()
}

// Write sends buf in writeChunkSize pieces, waiting for each chunk's
// SendSuccess event before sending the next.
func (w *TcpWriter) Write(ctx context.Context, buf []byte) (int, error) {
	s := w.stream
	for offset := 0; offset < len(buf); offset += writeChunkSize {
		end := offset + writeChunkSize
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[offset:end]

		if s.closed.Load() {
			return offset, &Error{Kind: ErrClosed}
		}

		guard, err := s.runner.Lock(ctx)
		if err != nil {
			return offset, err
		}
		_, err = guard.Run(ctx, atproto.IpSendHeader(s.ordinal, len(chunk)))
		if err != nil {
			guard.Unlock()
			return offset, &Error{Kind: ErrSendFail}
		}
		sendErr := guard.SendBytes(ctx, chunk)
		guard.Unlock()
		if sendErr != nil {
			return offset, sendErr
		}

		event, err := w.awaitSendResult(ctx)
		if err != nil {
			return offset, err
		}
		switch event {
		case atproto.EventSendSuccess:
		case atproto.EventSendFail:
			return offset, &Error{Kind: ErrSendFail}
		}
	}
	return len(buf), nil
}

// awaitSendResult blocks for the SEND OK/SEND FAIL verdict of the chunk
// just written, bounded by the stream timeout and cut short if the
// stream closes underneath us.
func (w *TcpWriter) awaitSendResult(ctx context.Context) (atproto.ConnectionEvent, error) {
	s := w.stream
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	go func() {
		select {
		case <-s.closedCh:
			cancel()
		case <-wctx.Done():
		}
	}()

	event, err := s.writerEvents.Recv(wctx)
	switch {
	case err == nil:
		return event.Message, nil
	case s.closed.Load():
		return 0, &Error{Kind: ErrClosed}
	case errors.Is(err, context.DeadlineExceeded):
		return 0, &Error{Kind: ErrTimeout}
	case ctx.Err() != nil:
		return 0, ctx.Err()
	default:
		return 0, err
	}
}

// Read delivers whatever payload bytes the slot's rx pipe holds, blocking
// until at least one byte arrives. A full stream-timeout of silence
// triggers a liveness probe (a plain AT command); if the link answers,
// the wait continues. A closed stream reads as EOF (n == 0, nil error),
// unless the close was abnormal, which surfaces as an error instead.
func (r *TcpReader) Read(ctx context.Context, buf []byte) (int, error) {
	s := r.stream
	for {
		if s.closed.Load() {
			if s.abnormal.Load() {
				return 0, &Error{Kind: ErrClosed}
			}
			return 0, nil
		}

		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		go func() {
			select {
			case <-s.closedCh:
				cancel()
			case <-rctx.Done():
			}
		}()

		n, err := s.state.Rx.Read(rctx, buf)
		cancel()
		if err == nil {
			return n, nil
		}
		if s.closed.Load() {
			if s.abnormal.Load() {
				return 0, &Error{Kind: ErrClosed}
			}
			return 0, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		// Stream timeout: nudge the modem to prove the link is alive.
		if probeErr := runLiveness(ctx, s.runner); probeErr != nil {
			return 0, &Error{Kind: ErrTimeout}
		}
	}
}
