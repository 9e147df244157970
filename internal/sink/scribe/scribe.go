/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package scribe forwards events to a Facebook Scribe endpoint over the
// Thrift binary protocol, mirroring udplog's scribe.py consumer.
package scribe // import "github.com/mjolnir42/udplogd/internal/sink/scribe"

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
	"github.com/mjolnir42/udplogd/internal/queue"
	"github.com/mjolnir42/udplogd/internal/session"
	"github.com/mjolnir42/udplogd/internal/sink/scribe/gen-go/scribe"
)

// DialTimeout bounds how long a connection attempt to the Scribe
// endpoint may take.
const DialTimeout = 5 * time.Second

// Sink feeds a bounded queue of events to a Scribe endpoint, dropping
// anything below MinLevel before it ever reaches the wire.
type Sink struct {
	name     string
	addr     string
	minLevel event.LogLevel
	queue    *queue.Queue
	session  *session.Session
	client   *scribe.ScribeClient
}

// New builds a Scribe sink dialing addr (host:port), filtering out any
// event below minLevel. New does not register with d; the session
// registers the sink with d while a connection is up.
func New(name, addr string, minLevel event.LogLevel, queueSize int, d *dispatch.Dispatcher) *Sink {
	s := &Sink{name: name, addr: addr, minLevel: minLevel}
	s.queue = queue.New(name, queueSize, s.send)
	s.session = session.New(name, d, s.connect)
	return s
}

// Run drives the reconnecting session, which resumes the queue on each
// connect; it blocks until ctx is cancelled.
func (s *Sink) Run(ctx context.Context) {
	s.session.Run(ctx)
}

// Stop tears the session down and stops the queue; events still
// buffered in the queue are not delivered.
func (s *Sink) Stop() {
	s.session.Stop()
	s.queue.Stop()
}

// OnEvent implements dispatch.Consumer: events below minLevel are
// dropped here, before ever touching the queue.
func (s *Sink) OnEvent(ev event.Event) {
	if ev.LogLevel != `` && ev.LogLevel.Rank() < s.minLevel.Rank() {
		metrics.Mark(fmt.Sprintf(`/sink/%s/dropped.per.second`, s.name))
		return
	}
	s.queue.Put(ev)
}

// connect implements session.Connector: it dials the Scribe endpoint,
// wraps it in a buffered framed Thrift transport, and resumes the
// queue so buffered events start draining again.
func (s *Sink) connect(ctx context.Context) (session.Connection, error) {
	conn, err := net.DialTimeout(`tcp`, s.addr, DialTimeout)
	if err != nil {
		return session.Connection{}, err
	}

	transportFactory := thrift.NewTFramedTransportFactoryMaxLength(
		thrift.NewTTransportFactory(), thrift.DefaultMaxLength)
	protocolFactory := thrift.NewTBinaryProtocolFactoryConf(&thrift.TConfiguration{
		TBinaryStrictRead:  thrift.BoolPtr(false),
		TBinaryStrictWrite: thrift.BoolPtr(false),
	})

	transport, err := transportFactory.GetTransport(&tcpTransport{conn})
	if err != nil {
		conn.Close()
		return session.Connection{}, err
	}
	if err := transport.Open(); err != nil {
		conn.Close()
		return session.Connection{}, err
	}

	s.client = scribe.NewScribeClientFactory(transport, protocolFactory)
	s.queue.Resume()

	lost := make(chan struct{})
	go s.watch(conn, lost)

	return session.Connection{
		Consumer: dispatch.ConsumerFunc(s.OnEvent),
		Lost:     lost,
		Close: func() {
			s.queue.Pause()
			transport.Close()
		},
	}, nil
}

// watch closes lost once the underlying connection dies, by blocking
// on a one-byte read; Scribe never pushes data to the client so any
// read error or EOF means the peer went away.
func (s *Sink) watch(conn net.Conn, lost chan struct{}) {
	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Time{})
	_, _ = conn.Read(buf)
	close(lost)
}

// send is the queue.Callback: it ships a single event as a one-message
// Scribe Log() batch. The message body is the event's plain JSON with
// the category stripped, since Scribe already carries the category out
// of band as the LogEntry's own category field.
func (s *Sink) send(ev event.Event) error {
	if s.client == nil {
		return fmt.Errorf(`scribe: %s not connected`, s.name)
	}

	raw, err := ev.MarshalJSONNoCategory()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), DialTimeout)
	defer cancel()

	result, err := s.client.Log(ctx, []*scribe.LogEntry{
		scribe.NewLogEntry(ev.Category, string(raw)),
	})
	if err != nil {
		metrics.Mark(fmt.Sprintf(`/sink/%s/dropped.per.second`, s.name))
		return err
	}
	if result != scribe.ResultCode_OK {
		logrus.Warnf(`scribe: %s endpoint returned %s, dropping event`, s.name, result)
		metrics.Mark(fmt.Sprintf(`/sink/%s/dropped.per.second`, s.name))
		return fmt.Errorf(`scribe: %s result %s`, s.name, result)
	}
	metrics.Mark(fmt.Sprintf(`/sink/%s/sent.per.second`, s.name))
	return nil
}

// tcpTransport adapts a net.Conn to thrift.TTransportFactory's expected
// interface without pulling in the dedicated socket wrapper, since we
// already own the dial and its timeout.
type tcpTransport struct {
	net.Conn
}

func (t *tcpTransport) IsOpen() bool           { return t.Conn != nil }
func (t *tcpTransport) Open() error            { return nil }
func (t *tcpTransport) RemainingBytes() uint64 { return ^uint64(0) }
func (t *tcpTransport) Flush(ctx context.Context) error {
	return nil
}
