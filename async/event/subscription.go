// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package event

import (
	"reflect"
	"sync"
)

// Subscription represents a stream of events. The carrier of the events is
// typically a channel, but isn't part of the interface.
//
// Subscriptions can fail while established. Failures are reported through an
// error channel. It is safe to call Unsubscribe multiple times.
type Subscription interface {
	Err() <-chan error // returns the error channel
	Unsubscribe()       // cancels sending of events, closing the error channel
}

type feedSub struct {
	feed    *Feed
	channel reflect.Value
	errOnce sync.Once
	err     chan error
}

func (sub *feedSub) Unsubscribe() {
	sub.errOnce.Do(func() {
		sub.feed.remove(sub)
		close(sub.err)
	})
}

func (sub *feedSub) Err() <-chan error {
	return sub.err
}

// SubscriptionFunc runs a loop until it returns an error or quit is closed.
type SubscriptionFunc func(quit <-chan struct{}) error

// NewSubscription runs a producer function as a subscription, in its own
// goroutine. The difference to a bare goroutine is that launching errors are
// reported through the returned subscription's Err channel.
func NewSubscription(producer SubscriptionFunc) Subscription {
	s := &funcSub{unsub: make(chan struct{}), err: make(chan error, 1)}
	go func() {
		defer close(s.err)
		err := producer(s.unsub)
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.unsubscribed {
			if err != nil {
				s.err <- err
			}
			s.unsubscribed = true
		}
	}()
	return s
}

type funcSub struct {
	unsub        chan struct{}
	err          chan error
	mu           sync.Mutex
	unsubscribed bool
}

func (s *funcSub) Unsubscribe() {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	s.unsubscribed = true
	close(s.unsub)
	s.mu.Unlock()
	<-s.err
}

func (s *funcSub) Err() <-chan error {
	return s.err
}

// resubscribeSub backs Resubscribe, which calls fn repeatedly to obtain a
// subscription until the returned Subscription is unsubscribed or a produced
// subscription ends without error. A failed call to fn is retried at once,
// with no delay between attempts. It is useful for keeping long-running
// subscriptions (e.g. an EL websocket) alive across transient errors; it has
// no caller in this core but is kept as a ready-to-wire ambient helper
// because the teacher's async/event package exposes it alongside Feed.
type resubscribeSub struct {
	mu        sync.Mutex
	sub       Subscription
	unsub     chan struct{}
	unsubOnce sync.Once
	err       chan error
}

// Resubscribe installs the given subscribe function and returns a
// Subscription stable across reconnects.
func Resubscribe(fn func(quit <-chan struct{}) (Subscription, error)) Subscription {
	s := &resubscribeSub{unsub: make(chan struct{}), err: make(chan error)}
	go s.run(fn)
	return s
}

func (s *resubscribeSub) run(fn func(quit <-chan struct{}) (Subscription, error)) {
	defer close(s.err)
	var done bool
	for !done {
		sub, err := fn(s.unsub)
		if err != nil {
			select {
			case <-s.unsub:
				done = true
			default:
			}
			continue
		}
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
		select {
		case err := <-sub.Err():
			if err == nil {
				done = true
			}
		case <-s.unsub:
			sub.Unsubscribe()
			done = true
		}
	}
}

func (s *resubscribeSub) Unsubscribe() {
	s.unsubOnce.Do(func() {
		close(s.unsub)
		s.mu.Lock()
		if s.sub != nil {
			s.sub.Unsubscribe()
		}
		s.mu.Unlock()
	})
	<-s.err
}

func (s *resubscribeSub) Err() <-chan error {
	return s.err
}
