// Package atproto implements the AT command dialect spoken by a SIM7000
// family modem: the line reader, the typed response/URC decoder, and the
// request encoders. It has no knowledge of the serial transport or of the
// concurrency fabric that serializes commands; those live in package modem.
package atproto

import "github.com/pkg/errors"

// ErrInvalidUTF8 indicates a text line from the modem was not valid UTF-8.
var ErrInvalidUTF8 = errors.New("atproto: line is not valid utf-8")

// ErrBufferOverflow indicates the line reader's fixed buffer filled up
// without ever seeing a line terminator.
var ErrBufferOverflow = errors.New("atproto: line buffer overflow")

// ErrUnparsed describes a line that matches neither a known Urc nor a known
// ResponseCode. Classify does not return it; it reports that case by
// returning two nil values.
var ErrUnparsed = errors.New("atproto: line did not match any known response or urc")
