package negotiate

import (
	"bufio"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Size
		wantErr error
	}{
		{"canonical", "SIZE 800 600\n", Size{800, 600}, nil},
		{"lower case", "size 800 600\n", Size{800, 600}, nil},
		{"mixed case", "SiZe 1920 1080", Size{1920, 1080}, nil},
		{"surrounding whitespace", "  \tSIZE   64  32 \r\n", Size{64, 32}, nil},
		{"max uint16", "SIZE 65535 65535\n", Size{65535, 65535}, nil},
		{"zero", "SIZE 0 0\n", Size{0, 0}, nil},
		{"garbage", "GARBAGE\n", Size{}, ErrMalformedResponse},
		{"missing height", "SIZE 800\n", Size{}, ErrMalformedResponse},
		{"negative", "SIZE -1 600\n", Size{}, ErrMalformedResponse},
		{"trailing junk", "SIZE 800 600 px\n", Size{}, ErrMalformedResponse},
		{"empty", "", Size{}, ErrMalformedResponse},
		{"width overflow", "SIZE 65536 600\n", Size{}, ErrInvalidDimension},
		{"height overflow", "SIZE 800 99999999999999999999\n", Size{}, ErrInvalidDimension},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSize(tc.line)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// serveOnce accepts a single control connection, checks the request line
// and answers with reply.
func serveOnce(t *testing.T, reply string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil || req != Request {
			return
		}
		conn.Write([]byte(reply))
	}()

	return ln.Addr().String()
}

func TestNegotiate(t *testing.T) {
	t.Run("lower case reply", func(t *testing.T) {
		addr := serveOnce(t, "size 800 600\n")

		size, err := Negotiate(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, Size{Width: 800, Height: 600}, size)
		assert.Equal(t, "800x600", size.String())
	})

	t.Run("garbage reply", func(t *testing.T) {
		addr := serveOnce(t, "GARBAGE\n")

		_, err := Negotiate(context.Background(), addr)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("reply without newline before close", func(t *testing.T) {
		addr := serveOnce(t, "SIZE 320 240")

		size, err := Negotiate(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, Size{Width: 320, Height: 240}, size)
	})

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		ln.Close()

		_, err = Negotiate(context.Background(), addr)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestExchange_Pipe(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		defer server.Close()
		r := bufio.NewReader(server)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		server.Write([]byte("SIZE 1024 768\n"))
	}()

	size, err := Exchange(client)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1024, Height: 768}, size)
}
