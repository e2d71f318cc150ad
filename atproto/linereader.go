package atproto

import (
	"io"
	"unicode/utf8"
)

// lineBufferSize is the capacity of LineReader's rolling buffer; no
// single AT line is longer than this.
const lineBufferSize = 256

// WritePromptText is the literal bytes the modem sends, with no CRLF
// terminator, when it is ready to receive a binary payload.
const WritePromptText = "> "

// LineReader pulls one line at a time off a byte stream from the modem.
//
// A line is the byte slice between CRLF pairs on the wire, with two
// exceptions: the bare "> " write prompt (which the modem never terminates
// with CRLF), and echo/empty lines, which are silently discarded before
// classification.
type LineReader struct {
	r   io.Reader
	buf []byte
}

// NewLineReader wraps r with rolling-buffer line assembly.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r, buf: make([]byte, 0, lineBufferSize)}
}

// ReadLine blocks until a complete line is available, returning it with
// the CRLF terminator stripped. It never panics on adversarial input;
// a full buffer with no newline surfaces as ErrBufferOverflow.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		if line, ok, err := lr.takeLine(); err != nil {
			return "", err
		} else if ok {
			return line, nil
		}

		if len(lr.buf) == cap(lr.buf) {
			lr.buf = lr.buf[:0]
			return "", ErrBufferOverflow
		}

		n, err := lr.r.Read(lr.buf[len(lr.buf):cap(lr.buf)])
		if n > 0 {
			lr.buf = lr.buf[:len(lr.buf)+n]
		}
		if err != nil {
			return "", err
		}
	}
}

// takeLine attempts to slice one line off the front of the buffer without
// blocking for more input. ok is false if no complete line is buffered yet.
func (lr *LineReader) takeLine() (string, bool, error) {
	if len(lr.buf) >= 2 && string(lr.buf[:2]) == WritePromptText {
		lr.consume(2)
		return WritePromptText, true, nil
	}

	idx := indexByte(lr.buf, '\n')
	if idx < 0 {
		return "", false, nil
	}

	raw := lr.buf[:idx+1]
	echo := isEcho(raw)
	// copy out before consume shifts the buffer underneath raw
	line := string(trimCRLF(raw))
	lr.consume(idx + 1)

	if len(line) == 0 || echo {
		// empty or echoed line: discard and keep looking
		return lr.takeLine()
	}

	if !utf8.ValidString(line) {
		return "", false, ErrInvalidUTF8
	}
	return line, true, nil
}

// consume drops the first n bytes of the buffer, shifting the remainder
// down so future reads land after it.
func (lr *LineReader) consume(n int) {
	copy(lr.buf, lr.buf[n:])
	lr.buf = lr.buf[:len(lr.buf)-n]
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func trimCRLF(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// isEcho reports whether a raw (untrimmed) line, including its terminating
// "\n", is an echoed command line: the sim7000 doubles the carriage return
// ("\r\r\n") on echoed input.
func isEcho(raw []byte) bool {
	return len(raw) >= 3 && raw[len(raw)-1] == '\n' &&
		raw[len(raw)-2] == '\r' && raw[len(raw)-3] == '\r'
}

// ReadBinary reads exactly n raw bytes from the underlying stream, bypassing
// line framing entirely. Used after a ReceiveHeader URC. Any bytes already
// buffered by the line reader are consumed first so binary data following a
// URC on the same read is not lost.
func (lr *LineReader) ReadBinary(buf []byte) error {
	n := copy(buf, lr.buf)
	lr.consume(n)
	for n < len(buf) {
		m, err := lr.r.Read(buf[n:])
		if err != nil {
			return err
		}
		n += m
	}
	return nil
}
