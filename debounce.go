// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import (
	"sync"
	"time"
)

// debouncer filters level changes for providers that cannot debounce lines
// themselves.
//
// A level is passed on once it has been stable for the period, and only if it
// differs from the level last passed on.
type debouncer struct {
	period time.Duration
	emit   func(LevelChange)

	// mu covers the attributes below, and is held while emitting so stop
	// waits for any emit in progress.
	mu      sync.Mutex
	timer   *time.Timer
	pending LevelChange
	last    Level
	stopped bool
}

func newDebouncer(period time.Duration, emit func(LevelChange)) *debouncer {
	return &debouncer{period: period, emit: emit}
}

func (db *debouncer) notify(lc LevelChange) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.stopped {
		return
	}
	db.pending = lc
	if db.timer == nil {
		db.timer = time.AfterFunc(db.period, db.settled)
		return
	}
	db.timer.Reset(db.period)
}

func (db *debouncer) settled() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.stopped || db.pending.Level == db.last {
		return
	}
	db.last = db.pending.Level
	db.emit(db.pending)
}

func (db *debouncer) stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stopped = true
	if db.timer != nil {
		db.timer.Stop()
	}
}
