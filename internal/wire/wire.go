// Package wire encodes single-pixel pixelflut messages.
//
// Two formats are supported, selected once per run:
//
//	ASCII:  "PX <x> <y> <RR><GG><BB>[<AA>]\n"
//	Binary: 'P' 'B' x_lo x_hi y_lo y_hi R G B A   (10 bytes, PB extension)
//
// In ASCII mode the alpha pair is only emitted when alpha is below full
// opacity, so servers that do not understand RGBA still accept the default
// output. Binary records always carry alpha.
//
// Encoding never fails: coordinates are uint16 and channels are bytes.
package wire

import (
	"encoding/binary"
	"strconv"
)

// Mode selects the wire format.
type Mode int

const (
	// ASCII emits "PX x y RRGGBB[AA]\n" lines.
	ASCII Mode = iota
	// Binary emits fixed 10-byte "PB" records.
	Binary
)

// String returns a human-readable name for the mode
func (m Mode) String() string {
	switch m {
	case ASCII:
		return "ascii"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

const (
	// OpaqueAlpha is full opacity. ASCII messages omit the alpha pair at this value.
	OpaqueAlpha uint8 = 255

	// BinaryRecordSize is the exact length of a PB record.
	BinaryRecordSize = 10

	// MaxMessageSize bounds any single message: "PX 65535 65535 RRGGBBAA\n".
	MaxMessageSize = 24
)

const hexDigits = "0123456789ABCDEF"

// AppendASCII appends "PX x y RRGGBB\n" to dst, or "PX x y RRGGBBAA\n" when
// a is below OpaqueAlpha.
func AppendASCII(dst []byte, x, y uint16, r, g, b, a uint8) []byte {
	dst = append(dst, 'P', 'X', ' ')
	dst = strconv.AppendUint(dst, uint64(x), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, uint64(y), 10)
	dst = append(dst, ' ')
	dst = appendHex(dst, r)
	dst = appendHex(dst, g)
	dst = appendHex(dst, b)
	if a < OpaqueAlpha {
		dst = appendHex(dst, a)
	}
	return append(dst, '\n')
}

// AppendBinary appends a 10-byte PB record to dst. Coordinates are little-endian.
func AppendBinary(dst []byte, x, y uint16, r, g, b, a uint8) []byte {
	dst = append(dst, 'P', 'B')
	dst = binary.LittleEndian.AppendUint16(dst, x)
	dst = binary.LittleEndian.AppendUint16(dst, y)
	return append(dst, r, g, b, a)
}

func appendHex(dst []byte, v uint8) []byte {
	return append(dst, hexDigits[v>>4], hexDigits[v&0x0F])
}

// Encoder applies one mode and one alpha value to every message of a run.
type Encoder struct {
	Mode  Mode
	Alpha uint8
}

// NewEncoder returns an Encoder for mode and alpha.
func NewEncoder(mode Mode, alpha uint8) Encoder {
	return Encoder{Mode: mode, Alpha: alpha}
}

// Append appends the message for pixel (x, y) with color (r, g, b) to dst.
func (e Encoder) Append(dst []byte, x, y uint16, r, g, b uint8) []byte {
	if e.Mode == Binary {
		return AppendBinary(dst, x, y, r, g, b, e.Alpha)
	}
	return AppendASCII(dst, x, y, r, g, b, e.Alpha)
}
