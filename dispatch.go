// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import (
	"sync/atomic"
)

// QueuePolicy determines the behaviour of a full event queue.
type QueuePolicy int

const (
	// QueueBlock blocks notification delivery until the handler has made
	// space in the queue.
	QueueBlock QueuePolicy = iota

	// QueueDropOldest discards the oldest queued event to make space for the
	// new one.
	QueueDropOldest
)

func (p QueuePolicy) String() string {
	if p == QueueDropOldest {
		return "drop-oldest"
	}
	return "block"
}

// queue passes events from the listener to a dispatch goroutine.
type queue struct {
	ch      chan Event
	policy  QueuePolicy
	deliver func(Event)
	dropped *atomic.Uint64

	// closed to signal the dispatcher to exit
	done chan struct{}

	// closed once the dispatcher exits
	doneCh chan struct{}
}

func newQueue(depth int, policy QueuePolicy, deliver func(Event), dropped *atomic.Uint64) *queue {
	q := &queue{
		ch:      make(chan Event, depth),
		policy:  policy,
		deliver: deliver,
		dropped: dropped,
		done:    make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go q.dispatch()
	return q
}

func (q *queue) push(evt Event) {
	if q.policy == QueueDropOldest {
		for {
			select {
			case q.ch <- evt:
				return
			default:
			}
			select {
			case <-q.ch:
				q.dropped.Add(1)
			default:
			}
		}
	}
	select {
	case q.ch <- evt:
	case <-q.done:
	}
}

// stop discards any queued events and waits for the dispatcher to exit.
func (q *queue) stop() {
	close(q.done)
	<-q.doneCh
}

func (q *queue) dispatch() {
	defer close(q.doneCh)
	for {
		select {
		case <-q.done:
			return
		case evt := <-q.ch:
			select {
			case <-q.done:
				return
			default:
			}
			q.deliver(evt)
		}
	}
}
