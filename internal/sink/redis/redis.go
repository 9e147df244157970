/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package redis forwards events to a round-robin pool of Redis list
// endpoints via LPUSH, mirroring udplog's redis.py consumer.
package redis // import "github.com/mjolnir42/udplogd/internal/sink/redis"

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/go-redis/redis"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
	"github.com/mjolnir42/udplogd/internal/queue"
)

// DialTimeout bounds each endpoint's connection attempt.
const DialTimeout = 5 * time.Second

// MaxPushAttempts bounds how many endpoints a single event may be
// retried against before it is given up on (Design Note (a)).
const MaxPushAttempts = 3

// ErrNoClient is returned when the pool has no live endpoint to push
// to.
var ErrNoClient = fmt.Errorf(`redis: no live endpoint in pool`)

// endpoint is one Redis server in the round-robin pool.
type endpoint struct {
	addr   string
	mu     sync.Mutex
	client *goredis.Client
	live   bool
}

func (e *endpoint) dial() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.live {
		return
	}
	c := goredis.NewClient(&goredis.Options{
		Addr:        e.addr,
		DialTimeout: DialTimeout,
	})
	if err := c.Ping().Err(); err != nil {
		c.Close()
		return
	}
	e.client = c
	e.live = true
}

func (e *endpoint) fail() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
	}
	e.client = nil
	e.live = false
}

func (e *endpoint) push(key string, raw []byte) error {
	e.mu.Lock()
	c := e.client
	l := e.live
	e.mu.Unlock()
	if !l || c == nil {
		return ErrNoClient
	}
	return c.LPush(key, raw).Err()
}

// Pool is a round-robin sink over a fixed set of Redis endpoints; a
// push that fails against one endpoint is retried against the next,
// up to MaxPushAttempts.
type Pool struct {
	name  string
	key   string
	queue *queue.Queue
	eps   []*endpoint
	next  uint64
	mu    sync.Mutex
}

// New builds a round-robin Redis sink over addrs (host:port strings),
// pushing every event onto key via LPUSH, and registering itself with
// d.
func New(name, key string, addrs []string, queueSize int, d *dispatch.Dispatcher) *Pool {
	p := &Pool{name: name, key: key}
	for _, a := range addrs {
		p.eps = append(p.eps, &endpoint{addr: a})
	}
	p.queue = queue.New(name, queueSize, p.send)
	d.Register(dispatch.ConsumerFunc(p.OnEvent))
	return p
}

// Run dials every endpoint and resumes the queue; unlike the
// reconnecting single-endpoint sinks, the pool tolerates individual
// endpoints being down and keeps routing around them. It blocks until
// ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	for _, e := range p.eps {
		e.dial()
	}
	p.queue.Resume()
	go p.redial(ctx)
	<-ctx.Done()
}

// redial periodically retries dead endpoints until ctx is cancelled.
func (p *Pool) redial(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, e := range p.eps {
				e.mu.Lock()
				live := e.live
				e.mu.Unlock()
				if !live {
					e.dial()
				}
			}
		}
	}
}

// Stop tears the queue down and closes every endpoint.
func (p *Pool) Stop() {
	p.queue.Stop()
	for _, e := range p.eps {
		e.fail()
	}
}

// OnEvent implements dispatch.Consumer.
func (p *Pool) OnEvent(ev event.Event) {
	p.queue.Put(ev)
}

// send is the queue.Callback: round-robins across all configured
// endpoints, moving on to the next one when a push fails (a dead
// endpoint fails with ErrNoClient), up to MaxPushAttempts times before
// giving up on the event.
func (p *Pool) send(ev event.Event) error {
	if len(p.eps) == 0 {
		return ErrNoClient
	}

	raw, err := ev.MarshalJSON()
	if err != nil {
		return err
	}

	attempts := MaxPushAttempts
	if attempts > len(p.eps) {
		attempts = len(p.eps)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		e := p.pick()
		if err := e.push(p.key, raw); err != nil {
			lastErr = err
			e.fail()
			continue
		}
		metrics.Mark(fmt.Sprintf(`/sink/%s/sent.per.second`, p.name))
		return nil
	}
	metrics.Mark(fmt.Sprintf(`/sink/%s/dropped.per.second`, p.name))
	return lastErr
}

// pick returns the next endpoint in round-robin order.
func (p *Pool) pick() *endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.eps[p.next%uint64(len(p.eps))]
	p.next++
	return e
}
