// Package textenc decodes child process output into Go strings according to
// a named text encoding.
package textenc

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Binary is the sentinel encoding name that disables decoding entirely; the
// raw bytes are passed through unchanged.
const Binary = "binary"

// A Decoder converts raw output bytes into a string.
type Decoder func([]byte) string

// New resolves name into a Decoder. An empty name selects the platform
// default: utf-8 on POSIX, cp437 on Windows (the code page used by cmd.exe).
func New(name string) (Decoder, error) {
	if name == "" {
		if runtime.GOOS == "windows" {
			name = "cp437"
		} else {
			name = "utf-8"
		}
	}
	switch strings.ToLower(name) {
	case Binary:
		return raw, nil
	case "utf-8", "utf8":
		// Go strings carry arbitrary bytes; invalid sequences survive the
		// round trip, matching a "replace nothing" error policy.
		return raw, nil
	}

	enc, err := ianaindex.IANA.Encoding(canonical(name))
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return decoderFor(enc), nil
}

func raw(b []byte) string { return string(b) }

func decoderFor(enc encoding.Encoding) Decoder {
	return func(b []byte) string {
		decoded, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			// Keep whatever decoded plus the raw remainder rather than
			// losing output to an encoding error.
			return string(b)
		}
		return string(decoded)
	}
}

// canonical maps the historical aliases accepted by the run options onto
// IANA names.
func canonical(name string) string {
	switch strings.ToLower(name) {
	case "cp437":
		return "IBM437"
	case "cp850":
		return "IBM850"
	case "latin-1", "latin1":
		return "ISO-8859-1"
	default:
		return name
	}
}
