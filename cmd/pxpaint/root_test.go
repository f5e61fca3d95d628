package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/e7canasta/pxpaint/internal/capture/gstscreen"
	"github.com/e7canasta/pxpaint/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCmd_FlagsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pxpaint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("count: 3\nalpha: 200\n"), 0o644))

	out, err := execute(t, "config", "canvas:1337", "--config", path, "-w", "320", "-h", "240", "-b", "-f")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "canvas:1337", cfg.Host)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height, "-h is height")
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, 200, cfg.Alpha)
	assert.True(t, cfg.Binary)
	assert.True(t, cfg.FrameBuffering)
	assert.False(t, cfg.NoFlush)
}

func TestConfigCmd_InvalidSettings(t *testing.T) {
	_, err := execute(t, "config", "--source", "webcam")
	assert.Error(t, err)
}

func TestRootCmd_RequiresHost(t *testing.T) {
	_, err := execute(t, "--source", "pattern")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pxpaint dev\n", out)
}

func TestNewSource(t *testing.T) {
	cfg := config.Default()

	src, err := newSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gstscreen.Source{}, src)

	cfg.Source = "pattern"
	src, err = newSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &capture.PatternSource{}, src)

	cfg.Source = "image:/tmp/frame.png"
	src, err = newSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &capture.ImageSource{}, src)

	cfg.Source = "webcam"
	_, err = newSource(cfg)
	assert.Error(t, err)
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Host = "canvas:1337"
	cfg.NoFlush = true
	cfg.Alpha = 128

	opts := pipelineOptions(cfg)
	assert.Equal(t, "canvas:1337", opts.Host)
	assert.False(t, opts.FlushEveryPixel)
	assert.Equal(t, uint8(128), opts.Alpha)
	assert.False(t, opts.DoubleBuffer)
}
