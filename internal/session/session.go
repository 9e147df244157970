/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package session implements the reconnecting session factory of spec
// §4.F: it owns a sink's connection lifecycle, registering a Dispatcher
// consumer only while connected and retrying with exponential backoff
// (capped at MaxDelay) whenever the connection is lost.
//
// Design Note §9 recasts the Python original's ReconnectingClientFactory
// as a supervisor task that owns the session lifecycle and publishes
// connectivity transitions to the sink; Session is exactly that
// supervisor, running as one goroutine per sink.
package session // import "github.com/mjolnir42/udplogd/internal/session"

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/dispatch"
)

// InitialDelay is the backoff duration used after the first failed
// connection attempt.
const InitialDelay = 1 * time.Second

// MaxDelay caps the exponential backoff between connection attempts,
// per spec §4.F.
const MaxDelay = 30 * time.Second

// Connection is what a Connector hands back on a successful connect: a
// Dispatcher consumer to register for the lifetime of the connection,
// a channel that is closed when the connection is lost, and a function
// to release any resources.
type Connection struct {
	Consumer dispatch.Consumer
	Lost     <-chan struct{}
	Close    func()
}

// Connector attempts to establish one connection to a sink's transport.
// It blocks until the attempt succeeds or fails; Session runs it on a
// separate goroutine so a slow/blocking dial never stalls the rest of
// the daemon (spec §5: "any operation that must block ... is
// off-loaded to a worker").
type Connector func(ctx context.Context) (Connection, error)

// Session supervises one sink's connection lifecycle: disconnected ->
// connecting -> connected -> disconnected, forever, until stopped.
type Session struct {
	name       string
	dispatcher *dispatch.Dispatcher
	connect    Connector

	stop chan struct{}
	done chan struct{}

	state chan State
}

// State names the three phases of a Session's lifecycle (spec §4.J's
// state machine enumeration).
type State int

// Session states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return `disconnected`
	case Connecting:
		return `connecting`
	case Connected:
		return `connected`
	default:
		return `unknown`
	}
}

// New returns a Session that will register whatever Connector produces
// with d, retrying indefinitely on failure or disconnection.
func New(name string, d *dispatch.Dispatcher, connect Connector) *Session {
	return &Session{
		name:       name,
		dispatcher: d,
		connect:    connect,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		state:      make(chan State, 1),
	}
}

// Run drives the session's connect/register/wait/unregister loop until
// ctx is cancelled or Stop is called. It is meant to be run in its own
// goroutine.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	delay := InitialDelay

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		connCh := make(chan Connection, 1)
		errCh := make(chan error, 1)
		dialCtx, cancelDial := context.WithCancel(ctx)

		go func() {
			conn, err := s.connect(dialCtx)
			if err != nil {
				errCh <- err
				return
			}
			connCh <- conn
		}()

		select {
		case <-s.stop:
			cancelDial()
			return
		case <-ctx.Done():
			cancelDial()
			return
		case err := <-errCh:
			cancelDial()
			logrus.Warnf(`Session[%s], connect failed: %s (retry in %s)`, s.name, err, delay)
			if !s.sleep(delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		case conn := <-connCh:
			cancelDial()
			delay = InitialDelay
			tok := s.dispatcher.Register(conn.Consumer)
			logrus.Infof(`Session[%s], connected`, s.name)

			select {
			case <-s.stop:
				s.dispatcher.Unregister(tok)
				if conn.Close != nil {
					conn.Close()
				}
				return
			case <-ctx.Done():
				s.dispatcher.Unregister(tok)
				if conn.Close != nil {
					conn.Close()
				}
				return
			case <-conn.Lost:
				s.dispatcher.Unregister(tok)
				if conn.Close != nil {
					conn.Close()
				}
				logrus.Warnf(`Session[%s], connection lost, reconnecting`, s.name)
			}
		}
	}
}

// Stop signals Run to exit and blocks until it has.
func (s *Session) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

func (s *Session) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	}
}

func nextDelay(d time.Duration) time.Duration {
	next := d * 2
	if next > MaxDelay {
		return MaxDelay
	}
	return next
}
