// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/yaml"
	"github.com/warthog618/config/blob/loader/file"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
)

const envPrefix = "PIRMON_"

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"backend":     "backend",
	"chip":        "chip",
	"config":      "config",
	"log-level":   "log.level",
	"debounce":    "line.debounce",
	"active-low":  "line.activelow",
	"queue":       "queue.depth",
	"drop-oldest": "queue.dropoldest",
	"num-events":  "events.limit",
	"quiet":       "events.quiet",
	"sim-period":  "sim.period",
}

func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"backend": "cdev",
		"chip":    "gpiochip0",
		"config":  "",
		"log": map[string]interface{}{
			"level": "info",
		},
		"line": map[string]interface{}{
			"debounce":  "0s",
			"activelow": false,
		},
		"queue": map[string]interface{}{
			"depth":      0,
			"dropoldest": false,
		},
		"events": map[string]interface{}{
			"limit": 0,
			"quiet": false,
		},
		"sim": map[string]interface{}{
			"period": "500ms",
		},
	}
}

// settings are the resolved monitor settings.
type settings struct {
	Backend    string
	Chip       string
	LogLevel   string
	Debounce   time.Duration
	ActiveLow  bool
	QueueDepth int
	DropOldest bool
	Limit      int
	Quiet      bool
	SimPeriod  time.Duration
}

// loadConfig builds the config from, in decreasing priority, the flags set on
// the command line, the environment, the config file, and the defaults.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	defaults := dict.New(dict.WithMap(defaultConfig()))
	var g config.Getter = config.NewStack(
		flagGetter(fs),
		env.New(env.WithEnvPrefix(envPrefix)))
	cfg := config.New(g, config.WithDefault(defaults))
	path := cfg.MustGet("config").String()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "config file")
	}
	g = config.NewStack(g, blob.New(file.New(path), yaml.NewDecoder()))
	return config.New(g, config.WithDefault(defaults)), nil
}

// flagGetter returns a getter for the flags set on the command line.
func flagGetter(fs *pflag.FlagSet) *dict.Getter {
	m := map[string]interface{}{}
	fs.Visit(func(f *pflag.Flag) {
		if k, ok := flagKeys[f.Name]; ok {
			setPath(m, k, f.Value.String())
		}
	})
	return dict.New(dict.WithMap(m))
}

func setPath(m map[string]interface{}, key string, v interface{}) {
	path := strings.Split(key, ".")
	for _, p := range path[:len(path)-1] {
		sm, ok := m[p].(map[string]interface{})
		if !ok {
			sm = map[string]interface{}{}
			m[p] = sm
		}
		m = sm
	}
	m[path[len(path)-1]] = v
}

func loadSettings(cfg *config.Config) (settings, error) {
	s := settings{
		Backend:    strings.ToLower(cfg.MustGet("backend").String()),
		Chip:       cfg.MustGet("chip").String(),
		LogLevel:   cfg.MustGet("log.level").String(),
		ActiveLow:  cfg.MustGet("line.activelow").Bool(),
		QueueDepth: int(cfg.MustGet("queue.depth").Int()),
		DropOldest: cfg.MustGet("queue.dropoldest").Bool(),
		Limit:      int(cfg.MustGet("events.limit").Int()),
		Quiet:      cfg.MustGet("events.quiet").Bool(),
	}
	var err error
	if s.Debounce, err = duration(cfg, "line.debounce"); err != nil {
		return s, err
	}
	if s.SimPeriod, err = duration(cfg, "sim.period"); err != nil {
		return s, err
	}
	if s.QueueDepth < 0 {
		return s, errors.Errorf("invalid queue depth %d", s.QueueDepth)
	}
	if s.Limit < 0 {
		return s, errors.Errorf("invalid event limit %d", s.Limit)
	}
	return s, nil
}

func duration(cfg *config.Config, key string) (time.Duration, error) {
	v := cfg.MustGet(key).String()
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}
