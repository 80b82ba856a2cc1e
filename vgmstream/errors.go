package vgmstream

import (
	"errors"
	"fmt"
)

// ErrorKind tags a DecodeError with one of the failure categories spec.md
// §7 distinguishes.
type ErrorKind int

const (
	ErrKindNotRecognized ErrorKind = iota
	ErrKindMalformedHeader
	ErrKindUnsupportedCodec
	ErrKindShortRead
	ErrKindInvalidConfig
	ErrKindOutOfMemory
	ErrKindInternalDecoderError
	ErrKindCryptoKeyMissing
)

func (k ErrorKind) String() string {
	names := [...]string{
		"not_recognized", "malformed_header", "unsupported_codec", "short_read",
		"invalid_config", "out_of_memory", "internal_decoder_error", "crypto_key_missing",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// DecodeError is the typed error surfaced by the public API (spec.md §7).
// Format names the meta that produced (or was attempting to produce) the
// stream; Offset is where the failure was detected: Fill records the sample
// index it was decoding, and Open passes -1 (not applicable).
type DecodeError struct {
	Kind   ErrorKind
	Format string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vgmstream: %s (%s, offset %d): %v", e.Kind, e.Format, e.Offset, e.Err)
	}
	return fmt.Sprintf("vgmstream: %s (%s, offset %d)", e.Kind, e.Format, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(kind ErrorKind, format string, offset int64, err error) *DecodeError {
	return &DecodeError{Kind: kind, Format: format, Offset: offset, Err: err}
}

// ErrStreamNotOpen is returned by any play-state method called before Open
// has succeeded.
var ErrStreamNotOpen = errors.New("vgmstream: stream not open")

// ErrAlreadyDone is not returned by Fill or Play: once the stream has
// reached its end, Fill returns 0 and a nil error.
var ErrAlreadyDone = errors.New("vgmstream: stream already done")
