/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package kafka forwards events to a Kafka topic via an asynchronous
// producer, mirroring udplog's kafka.py consumer's batching knobs.
package kafka // import "github.com/mjolnir42/udplogd/internal/sink/kafka"

import (
	"time"

	"github.com/Shopify/sarama"
	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
)

// sinkName identifies this sink in metrics paths; kafka.Sink has no
// configurable name field since only one producer is ever wired up.
const sinkName = `kafka`

// Sink is a fire-and-forget async producer bound to a single topic.
// Unlike the other sinks it does not route through the bounded
// drop-oldest queue: sarama already buffers and batches internally,
// per BufferMaxSize/SendEveryMsg/SendEverySec.
type Sink struct {
	topic    string
	producer sarama.AsyncProducer
	done     chan struct{}
}

// Config mirrors the kafka namespace of the daemon's configuration.
type Config struct {
	Brokers       []string
	Topic         string
	BufferMaxSize int
	SendEveryMsg  int
	SendEverySec  int
}

// New connects an async producer to brokers and registers the
// resulting sink with d. The producer is constructed synchronously
// here rather than off in a goroutine, since sarama.NewAsyncProducer
// dials brokers itself and returns once they are reachable.
func New(cfg Config, d *dispatch.Dispatcher) (*Sink, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = false
	conf.Producer.Return.Errors = true
	conf.Producer.RequiredAcks = sarama.WaitForLocal
	conf.ChannelBufferSize = cfg.BufferMaxSize
	conf.Producer.Flush.Messages = cfg.SendEveryMsg
	conf.Producer.Flush.Frequency = time.Duration(cfg.SendEverySec) * time.Second

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, conf)
	if err != nil {
		return nil, err
	}

	s := &Sink{topic: cfg.Topic, producer: producer, done: make(chan struct{})}
	go s.drainErrors()
	d.Register(dispatch.ConsumerFunc(s.OnEvent))
	return s, nil
}

// OnEvent implements dispatch.Consumer: it encodes the event and
// enqueues it on the producer's input channel, which applies its own
// internal batching and backpressure.
func (s *Sink) OnEvent(ev event.Event) {
	raw, err := ev.MarshalJSON()
	if err != nil {
		logrus.Warnf(`kafka: dropping event, encode failed: %s`, err)
		metrics.Mark(`/sink/` + sinkName + `/dropped.per.second`)
		return
	}
	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(ev.Category),
		Value: sarama.ByteEncoder(raw),
	}
	metrics.Mark(`/sink/` + sinkName + `/sent.per.second`)
}

// drainErrors logs producer errors sarama otherwise discards.
func (s *Sink) drainErrors() {
	for {
		select {
		case err, ok := <-s.producer.Errors():
			if !ok {
				return
			}
			logrus.Errorf(`kafka: publish failed for topic %s: %s`, s.topic, err.Err)
			metrics.Mark(`/sink/` + sinkName + `/dropped.per.second`)
		case <-s.done:
			return
		}
	}
}

// Stop closes the producer, flushing any buffered messages.
func (s *Sink) Stop() {
	close(s.done)
	s.producer.AsyncClose()
}
