// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/cdev"
	"github.com/warthog618/go-pir/device/rpi"
	"go.uber.org/zap/zapcore"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("pirmon", pflag.ContinueOnError)
	fs.StringP("backend", "b", "cdev", "")
	fs.StringP("chip", "c", "gpiochip0", "")
	fs.String("log-level", "info", "")
	fs.String("config", "", "")
	fs.DurationP("debounce", "d", 0, "")
	fs.BoolP("active-low", "l", false, "")
	fs.Int("queue", 0, "")
	fs.Bool("drop-oldest", false, "")
	fs.UintP("num-events", "n", 0, "")
	fs.BoolP("quiet", "q", false, "")
	fs.Duration("sim-period", 500*time.Millisecond, "")
	require.Nil(t, fs.Parse(args))
	return fs
}

func settingsOf(t *testing.T, args ...string) settings {
	t.Helper()
	cfg, err := loadConfig(newFlagSet(t, args...))
	require.Nil(t, err)
	s, err := loadSettings(cfg)
	require.Nil(t, err)
	return s
}

func TestLoadConfigDefaults(t *testing.T) {
	s := settingsOf(t)
	assert.Equal(t, settings{
		Backend:   "cdev",
		Chip:      "gpiochip0",
		LogLevel:  "info",
		SimPeriod: 500 * time.Millisecond,
	}, s)
}

func TestLoadConfigFlags(t *testing.T) {
	s := settingsOf(t,
		"--backend=SIM",
		"-c", "gpiochip4",
		"--log-level", "debug",
		"-d", "20ms",
		"-l",
		"--queue=3",
		"--drop-oldest",
		"-n", "2",
		"-q",
		"--sim-period=5ms")
	assert.Equal(t, settings{
		Backend:    "sim",
		Chip:       "gpiochip4",
		LogLevel:   "debug",
		Debounce:   20 * time.Millisecond,
		ActiveLow:  true,
		QueueDepth: 3,
		DropOldest: true,
		Limit:      2,
		Quiet:      true,
		SimPeriod:  5 * time.Millisecond,
	}, s)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("PIRMON_LOG_LEVEL", "warn")
	t.Setenv("PIRMON_QUEUE_DEPTH", "4")
	t.Setenv("PIRMON_BACKEND", "rpio")

	s := settingsOf(t, "--backend", "periph")
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, 4, s.QueueDepth)
	// flags override the environment
	assert.Equal(t, "periph", s.Backend)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pirmon.yaml")
	err := os.WriteFile(path, []byte(`backend: sim
chip: gpiochip2
line:
  debounce: 15ms
  activelow: true
events:
  limit: 3
`), 0o644)
	require.Nil(t, err)
	t.Setenv("PIRMON_CHIP", "gpiochip3")

	s := settingsOf(t, "--config", path, "-n", "5")
	assert.Equal(t, "sim", s.Backend)
	assert.Equal(t, 15*time.Millisecond, s.Debounce)
	assert.True(t, s.ActiveLow)
	// the environment and flags override the file
	assert.Equal(t, "gpiochip3", s.Chip)
	assert.Equal(t, 5, s.Limit)

	// missing
	_, err = loadConfig(newFlagSet(t, "--config", path+"-not"))
	assert.NotNil(t, err)
}

func TestLoadSettingsInvalid(t *testing.T) {
	patterns := []struct {
		name string
		args []string
	}{
		{"queue", []string{"--queue=-1"}},
		{"sim-period", []string{"--sim-period=-"}},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			fs := pflag.NewFlagSet("pirmon", pflag.ContinueOnError)
			fs.Int("queue", 0, "")
			fs.String("sim-period", "", "")
			require.Nil(t, fs.Parse(p.args))
			cfg, err := loadConfig(fs)
			require.Nil(t, err)
			_, err = loadSettings(cfg)
			assert.NotNil(t, err)
		}
		t.Run(p.name, tf)
	}
}

func TestParseLevel(t *testing.T) {
	patterns := []struct {
		name string
		xval zapcore.Level
		err  bool
	}{
		{"trace", pir.TraceLevel, false},
		{"TRACE", pir.TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"chatty", zapcore.InfoLevel, true},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			l, err := parseLevel(p.name)
			if p.err {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, p.xval, l)
		}
		t.Run(p.name, tf)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger("trace", zapcore.AddSync(&buf))
	require.Nil(t, err)
	l.Check(pir.TraceLevel, "raw").Write()
	l.Debug("cooked")
	out := buf.String()
	assert.Contains(t, out, "TRACE\traw")
	assert.Contains(t, out, "DEBUG\tcooked")

	buf.Reset()
	l, err = newLogger("info", zapcore.AddSync(&buf))
	require.Nil(t, err)
	assert.Nil(t, l.Check(pir.TraceLevel, "raw"))
	l.Debug("cooked")
	assert.Empty(t, buf.String())

	_, err = newLogger("chatty", zapcore.AddSync(&buf))
	assert.NotNil(t, err)
}

func TestMonPin(t *testing.T) {
	patterns := []struct {
		name string
		chip string
		args []string
		xval pir.Pin
		err  error
	}{
		{"default", "gpiochip0", nil, rpi.GPIO(12), nil},
		{"default chip", "gpiochip4", nil, pir.Pin{Chip: "gpiochip4", Offset: 12, Label: "GPIO 12"}, nil},
		{"gpio", "gpiochip0", []string{"GPIO18"}, rpi.GPIO(18), nil},
		{"j8", "gpiochip4", []string{"J8p35"}, pir.Pin{Chip: "gpiochip4", Offset: 19, Label: "GPIO 19"}, nil},
		{"explicit chip", "gpiochip4", []string{"gpiochip1:13"}, pir.Pin{Chip: "gpiochip1", Offset: 13}, nil},
		{"invalid", "gpiochip0", []string{"gpio99"}, pir.Pin{}, rpi.ErrInvalid},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			pin, err := monPin(p.chip, p.args)
			if p.err != nil {
				assert.True(t, errors.Is(err, p.err), err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, p.xval, pin)
		}
		t.Run(p.name, tf)
	}
}

func TestMonOpts(t *testing.T) {
	assert.Empty(t, monOpts(settings{}))
	assert.Len(t, monOpts(settings{ActiveLow: true, Debounce: time.Millisecond, QueueDepth: 2}), 3)
	assert.Len(t, monOpts(settings{DropOldest: true}), 0)
}

func TestOpenBackend(t *testing.T) {
	p, release, err := openBackend("sim")
	require.Nil(t, err)
	assert.NotNil(t, p)
	assert.Nil(t, release())

	p, release, err = openBackend("cdev")
	require.Nil(t, err)
	assert.NotNil(t, p)
	assert.Nil(t, release())

	p, release, err = openBackend("gpiozero")
	assert.NotNil(t, err)
	assert.Nil(t, p)
	assert.Nil(t, release)
}

func TestPrintPins(t *testing.T) {
	var buf bytes.Buffer
	printPins(&buf, "gpiochip0", nil)
	assert.Equal(t, `GPIO_18  gpiochip0:18
GPIO_19  gpiochip0:19
GPIO_12  gpiochip0:12 (default)
GPIO_13  gpiochip0:13
`, buf.String())

	buf.Reset()
	state := func(p pir.Pin) (cdev.LineState, error) {
		if p.Offset == 13 {
			return cdev.LineState{}, errors.New("no such chip")
		}
		return cdev.LineState{Used: p.Offset == 12, Consumer: "hcsr501"}, nil
	}
	printPins(&buf, "gpiochip2", state)
	assert.Equal(t, `GPIO_18  gpiochip2:18 - unused
GPIO_19  gpiochip2:19 - unused
GPIO_12  gpiochip2:12 (default) - used by "hcsr501"
GPIO_13  gpiochip2:13 - no such chip
`, buf.String())
}

func TestMon(t *testing.T) {
	var out, errs bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errs)
	rootCmd.SetArgs([]string{"mon",
		"--backend", "sim",
		"--log-level", "error",
		"--sim-period", "5ms",
		"--num-events", "3",
		"gpio18"})
	defer rootCmd.SetArgs(nil)

	done := make(chan error)
	go func() {
		done <- rootCmd.Execute()
	}()
	select {
	case err := <-done:
		require.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for mon")
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.True(t, strings.HasPrefix(l, fmt.Sprintf("[GPIO_18] %t ", i%2 == 0)), l)
	}
	assert.Empty(t, errs.String())
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	require.Nil(t, rootCmd.Execute())
	assert.Equal(t, "pirmon undefined\n", out.String())
}
