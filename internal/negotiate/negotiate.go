// Package negotiate discovers the remote canvas size with the pixelflut
// SIZE handshake.
//
// The exchange is a single request line and a single response line on a
// short-lived control connection:
//
//	-> SIZE\n
//	<- SIZE <width> <height>\n
//
// The keyword is matched case-insensitively and surrounding whitespace is
// ignored. Failures are not retried and the response read has no timeout;
// a server that never answers blocks the caller.
package negotiate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
)

// Request is the literal handshake request.
const Request = "SIZE\n"

var sizePattern = regexp.MustCompile(`(?i)^\s*SIZE\s+(\d+)\s+(\d+)\s*$`)

var (
	// ErrMalformedResponse is returned when the response line does not match "SIZE <w> <h>".
	ErrMalformedResponse = errors.New("negotiate: malformed SIZE response")
	// ErrInvalidDimension is returned when a width or height does not fit an unsigned 16-bit integer.
	ErrInvalidDimension = errors.New("negotiate: invalid canvas dimension")
)

// Size is the canvas size reported by the server.
type Size struct {
	Width  uint16
	Height uint16
}

// String returns "WxH"
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ParseSize parses one response line.
func ParseSize(line string) (Size, error) {
	m := sizePattern.FindStringSubmatch(line)
	if m == nil {
		return Size{}, fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}

	w, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return Size{}, fmt.Errorf("%w: width %q: %v", ErrInvalidDimension, m[1], err)
	}
	h, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return Size{}, fmt.Errorf("%w: height %q: %v", ErrInvalidDimension, m[2], err)
	}

	return Size{Width: uint16(w), Height: uint16(h)}, nil
}

// Exchange sends the SIZE request on rw and parses the first response line.
func Exchange(rw io.ReadWriter) (Size, error) {
	if _, err := io.WriteString(rw, Request); err != nil {
		return Size{}, fmt.Errorf("negotiate: write request: %w", err)
	}

	line, err := bufio.NewReader(rw).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return Size{}, fmt.Errorf("negotiate: read response: %w", err)
	}

	return ParseSize(line)
}

// Negotiate dials addr over TCP, performs the handshake and closes the
// control connection. ctx bounds the dial only.
func Negotiate(ctx context.Context, addr string) (Size, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Size{}, fmt.Errorf("negotiate: dial %s: %w", addr, err)
	}
	defer conn.Close()

	size, err := Exchange(conn)
	if err != nil {
		return Size{}, err
	}

	slog.Info("negotiate: canvas size received", "host", addr, "size", size.String())
	return size, nil
}
