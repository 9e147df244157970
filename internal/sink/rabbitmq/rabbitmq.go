/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package rabbitmq forwards events to an AMQP topic exchange, mirroring
// udplog's rabbitmq.py consumer.
package rabbitmq // import "github.com/mjolnir42/udplogd/internal/sink/rabbitmq"

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
	"github.com/mjolnir42/udplogd/internal/queue"
	"github.com/mjolnir42/udplogd/internal/session"
)

// DialTimeout bounds connection attempts against the broker.
const DialTimeout = 5 * time.Second

// ExchangeKind is the exchange type udplog has always declared.
const ExchangeKind = `topic`

// Sink publishes events to a topic exchange, routed by the event's
// category.
type Sink struct {
	name     string
	url      string
	exchange string
	queue    *queue.Queue
	session  *session.Session
	channel  *amqp.Channel
}

// New builds a RabbitMQ sink dialing url (an amqp URL including the
// vhost) and declaring exchange as a durable topic exchange. New does
// not register with d; the session registers the sink with d while a
// connection is up.
func New(name, url, exchange string, queueSize int, d *dispatch.Dispatcher) *Sink {
	s := &Sink{name: name, url: url, exchange: exchange}
	s.queue = queue.New(name, queueSize, s.send)
	s.session = session.New(name, d, s.connect)
	return s
}

// Run starts the reconnecting session; it blocks until ctx is
// cancelled.
func (s *Sink) Run(ctx context.Context) {
	s.session.Run(ctx)
}

// Stop tears the session and queue down.
func (s *Sink) Stop() {
	s.session.Stop()
	s.queue.Stop()
}

// OnEvent implements dispatch.Consumer.
func (s *Sink) OnEvent(ev event.Event) {
	s.queue.Put(ev)
}

// connect implements session.Connector: dials the broker, opens a
// channel, declares the topic exchange, and resumes the queue.
func (s *Sink) connect(ctx context.Context) (session.Connection, error) {
	conn, err := amqp.DialConfig(s.url, amqp.Config{
		Dial: amqp.DefaultDial(DialTimeout),
	})
	if err != nil {
		return session.Connection{}, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return session.Connection{}, err
	}

	if err := ch.ExchangeDeclare(
		s.exchange, ExchangeKind,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return session.Connection{}, err
	}

	s.channel = ch
	s.queue.Resume()

	lost := make(chan struct{})
	closeNotify := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		<-closeNotify
		close(lost)
	}()

	return session.Connection{
		Consumer: dispatch.ConsumerFunc(s.OnEvent),
		Lost:     lost,
		Close: func() {
			s.queue.Pause()
			ch.Close()
			conn.Close()
		},
	}, nil
}

// send is the queue.Callback: it publishes a single event, routed by
// its category, to the declared exchange. The JSON body's timestamp
// field is stringified, a known downstream interop workaround carried
// over from rabbitmq.py; the AMQP protocol-level Publishing.Timestamp
// is unrelated and stays a time.Time.
func (s *Sink) send(ev event.Event) error {
	if s.channel == nil {
		return fmt.Errorf(`rabbitmq: %s not connected`, s.name)
	}

	raw, err := ev.MarshalJSONStringTimestamp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), DialTimeout)
	defer cancel()

	err = s.channel.PublishWithContext(ctx,
		s.exchange,
		ev.Category,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: `application/json`,
			Timestamp:   time.Unix(int64(ev.Timestamp), 0),
			Body:        raw,
		},
	)
	if err != nil {
		metrics.Mark(fmt.Sprintf(`/sink/%s/dropped.per.second`, s.name))
		return err
	}
	metrics.Mark(fmt.Sprintf(`/sink/%s/sent.per.second`, s.name))
	return nil
}
