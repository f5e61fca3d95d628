package wire

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asciiPattern = regexp.MustCompile(`^PX (\d+) (\d+) ([0-9A-F]{2})([0-9A-F]{2})([0-9A-F]{2})([0-9A-F]{2})?\n$`)

func TestAppendASCII(t *testing.T) {
	tests := []struct {
		name    string
		x, y    uint16
		r, g, b uint8
		a       uint8
		want    string
	}{
		{"opaque", 50, 50, 0x12, 0xAB, 0x0F, 255, "PX 50 50 12AB0F\n"},
		{"half alpha", 50, 50, 0x12, 0xAB, 0x0F, 128, "PX 50 50 12AB0F80\n"},
		{"zero alpha padded", 0, 0, 0, 0, 0, 0, "PX 0 0 00000000\n"},
		{"low alpha padded", 1, 2, 0xFF, 0xFF, 0xFF, 0x07, "PX 1 2 FFFFFF07\n"},
		{"max coordinates", 65535, 65535, 1, 2, 3, 255, "PX 65535 65535 010203\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AppendASCII(nil, tc.x, tc.y, tc.r, tc.g, tc.b, tc.a)
			assert.Equal(t, tc.want, string(got))
			assert.LessOrEqual(t, len(got), MaxMessageSize)
		})
	}
}

// TestAppendASCII_RoundTrip re-parses encoded messages and expects the
// original integers back.
func TestAppendASCII_RoundTrip(t *testing.T) {
	coords := []uint16{0, 1, 9, 10, 255, 256, 999, 1000, 4095, 65535}
	channels := []uint8{0, 1, 15, 16, 127, 128, 254, 255}

	for _, x := range coords {
		for _, c := range channels {
			y := coords[len(coords)-1] - x
			msg := AppendASCII(nil, x, y, c, 255-c, c/2, c)

			m := asciiPattern.FindStringSubmatch(string(msg))
			require.NotNil(t, m, "message %q does not parse", msg)

			gotX, err := strconv.ParseUint(m[1], 10, 16)
			require.NoError(t, err)
			gotY, err := strconv.ParseUint(m[2], 10, 16)
			require.NoError(t, err)
			assert.Equal(t, uint64(x), gotX)
			assert.Equal(t, uint64(y), gotY)

			want := []uint8{c, 255 - c, c / 2}
			for i, hex := range m[3:6] {
				v, err := strconv.ParseUint(hex, 16, 8)
				require.NoError(t, err)
				assert.Equal(t, uint64(want[i]), v)
			}

			if c == OpaqueAlpha {
				assert.Empty(t, m[6], "opaque alpha must be omitted")
			} else {
				v, err := strconv.ParseUint(m[6], 16, 8)
				require.NoError(t, err)
				assert.Equal(t, uint64(c), v)
			}
		}
	}
}

// TestAppendASCII_AlphaOmission checks every alpha value: exactly one extra
// hex pair below 255, none at 255.
func TestAppendASCII_AlphaOmission(t *testing.T) {
	for a := 0; a <= 255; a++ {
		msg := string(AppendASCII(nil, 7, 8, 1, 2, 3, uint8(a)))
		if a == 255 {
			assert.Equal(t, "PX 7 8 010203\n", msg)
			continue
		}
		want := "PX 7 8 010203" + string(hexDigits[a>>4]) + string(hexDigits[a&0xF]) + "\n"
		assert.Equal(t, want, msg)
	}
}

func TestAppendBinary(t *testing.T) {
	coords := []uint16{0, 1, 255, 256, 350, 4660, 65535}

	for _, x := range coords {
		for _, y := range coords {
			rec := AppendBinary(nil, x, y, 0x11, 0x22, 0x33, 255)
			require.Len(t, rec, BinaryRecordSize)

			assert.Equal(t, byte('P'), rec[0])
			assert.Equal(t, byte('B'), rec[1])
			assert.Equal(t, x, uint16(rec[2])|uint16(rec[3])<<8)
			assert.Equal(t, y, uint16(rec[4])|uint16(rec[5])<<8)
			assert.Equal(t, []byte{0x11, 0x22, 0x33, 255}, rec[6:])
		}
	}
}

func TestAppendBinary_AlphaAlwaysPresent(t *testing.T) {
	rec := AppendBinary(nil, 350, 50, 1, 2, 3, 128)
	assert.Equal(t, []byte{'P', 'B', 350 & 0xFF, 350 >> 8, 50, 0, 1, 2, 3, 128}, rec)
}

func TestEncoder_Append(t *testing.T) {
	ascii := NewEncoder(ASCII, 255)
	assert.Equal(t, "PX 3 4 0A0B0C\n", string(ascii.Append(nil, 3, 4, 10, 11, 12)))

	bin := NewEncoder(Binary, 255)
	assert.Len(t, bin.Append(nil, 3, 4, 10, 11, 12), BinaryRecordSize)

	// Append reuses dst capacity.
	buf := make([]byte, 0, MaxMessageSize)
	out := ascii.Append(buf, 1, 1, 0, 0, 0)
	assert.Same(t, &buf[:1][0], &out[0])
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "ascii", ASCII.String())
	assert.Equal(t, "binary", Binary.String())
	assert.Equal(t, "unknown", Mode(42).String())
}
