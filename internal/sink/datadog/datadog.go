/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package datadog forwards events to the DataDog Events API, an
// endpoint udplog's original consumer set never had — added per the
// domain stack expansion to exercise the resty HTTP client already
// used elsewhere in this daemon's lineage for outbound REST calls.
package datadog // import "github.com/mjolnir42/udplogd/internal/sink/datadog"

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
	"github.com/mjolnir42/udplogd/internal/queue"
)

// EventsURL is the DataDog Events API endpoint.
const EventsURL = `https://app.datadoghq.com/api/v1/events`

// RequestTimeout bounds a single POST to the Events API.
const RequestTimeout = 10 * time.Second

// sinkName identifies this sink in metrics paths.
const sinkName = `datadog`

// Sink posts events to the DataDog Events API, fed through a bounded
// queue since the HTTP endpoint has no backpressure signal of its own.
type Sink struct {
	client *resty.Client
	queue  *queue.Queue
}

// New builds a DataDog Events sink authenticated with apiKey (and
// optionally applicationKey, appended as the application_key query
// param documented alongside it), and registers it with d.
func New(apiKey, applicationKey string, queueSize int, d *dispatch.Dispatcher) *Sink {
	client := resty.New().
		SetBaseURL(EventsURL).
		SetTimeout(RequestTimeout).
		SetQueryParam(`api_key`, apiKey).
		SetHeader(`Content-Type`, `application/json`)
	if applicationKey != `` {
		client.SetQueryParam(`application_key`, applicationKey)
	}

	s := &Sink{client: client}
	s.queue = queue.New(`datadog`, queueSize, s.send)
	s.queue.Resume()
	d.Register(dispatch.ConsumerFunc(s.OnEvent))
	return s
}

// OnEvent implements dispatch.Consumer.
func (s *Sink) OnEvent(ev event.Event) {
	s.queue.Put(ev)
}

// Stop tears the queue down.
func (s *Sink) Stop() {
	s.queue.Stop()
}

// buildPayload clones ev into a flat map and fills in the fields the
// Events API requires but udplog events don't always carry, mirroring
// datadog.py's sendEvent: the whole event is posted, not a narrow
// subset of its fields.
func buildPayload(ev event.Event) (map[string]interface{}, error) {
	raw, err := ev.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	if _, ok := m[`tags`]; !ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		tags := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			tags = append(tags, fmt.Sprintf(`%s:%v`, k, m[k]))
		}
		tags = append(tags, `emitter:udplog`)
		m[`tags`] = strings.Join(tags, `,`)
	}

	if _, ok := m[`title`]; !ok {
		if cat, ok := m[`category`].(string); ok && cat != `` {
			m[`title`] = cat
		} else {
			m[`title`] = `default`
		}
	}

	if _, ok := m[`priority`]; !ok {
		m[`priority`] = `normal`
	}

	if _, ok := m[`text`]; !ok {
		if msg, ok := m[`message`].(string); ok && msg != `` {
			m[`text`] = msg
		} else {
			full, err := json.Marshal(m)
			if err != nil {
				return nil, err
			}
			m[`text`] = string(full)
		}
	}

	return m, nil
}

// send is the queue.Callback: it posts a single event, augmented with
// defaulted tags/title/priority/text, to the Events API.
func (s *Sink) send(ev event.Event) error {
	body, err := buildPayload(ev)
	if err != nil {
		metrics.Mark(`/sink/` + sinkName + `/dropped.per.second`)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(``)
	if err != nil {
		metrics.Mark(`/sink/` + sinkName + `/dropped.per.second`)
		return err
	}
	if resp.IsError() {
		logrus.Warnf(`datadog: events API returned %s`, resp.Status())
		metrics.Mark(`/sink/` + sinkName + `/dropped.per.second`)
		return fmt.Errorf(`datadog: events API returned %s`, resp.Status())
	}
	metrics.Mark(`/sink/` + sinkName + `/sent.per.second`)
	return nil
}
