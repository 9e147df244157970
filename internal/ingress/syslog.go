/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package ingress // import "github.com/mjolnir42/udplogd/internal/ingress"

import (
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
)

// Facilities lists the RFC 3164 syslog facility names in priority order.
var Facilities = []string{
	`kern`, `user`, `mail`, `daemon`, `auth`, `syslog`, `lpr`, `news`,
	`uucp`, `cron`, `authpriv`, `ftp`, `ntp`, `audit`, `alert`, `at`,
	`local0`, `local1`, `local2`, `local3`, `local4`, `local5`,
	`local6`, `local7`,
}

// Severities lists the RFC 3164 syslog severity names in priority order.
var Severities = []string{
	`emerg`, `alert`, `crit`, `err`, `warn`, `notice`, `info`, `debug`,
}

// severityToLogLevel is the fixed mapping from syslog severity name to
// the common event model's logLevel, per spec §3.
var severityToLogLevel = map[string]event.LogLevel{
	`emerg`:  event.Emergency,
	`alert`:  event.Alert,
	`crit`:   event.Critical,
	`err`:    event.Error,
	`warn`:   event.Warning,
	`notice`: event.Notice,
	`info`:   event.Info,
	`debug`:  event.Debug,
}

// reSyslog implements the RFC 3164 grammar from spec §4.C:
// <PRI>MMM [ D]D HH:MM:SS HOST TAG([PID])?: CONTENT(\s@cee:\s<json>)?
var reSyslog = regexp.MustCompile(
	`(?i)^<(?P<priority>\d+)>` +
		`(?P<timestamp>\w{3}\s+\d{1,2}\s\d\d:\d\d:\d\d)\s` +
		`(?P<hostname>\S+)\s` +
		`(?P<tag>[^:\[\s]+)(\[(?P<pid>\d+)\])?:\s?` +
		`(?P<content>.*)$`,
)

// reCEE matches the `@cee:` structured-data tail extension.
var reCEE = regexp.MustCompile(`\s@cee:\s(.*)$`)

// syslogNow is the clock used to fill in the year the RFC 3164 format
// omits; overridden in tests for deterministic timestamps.
var syslogNow = time.Now

// ParsePriority extracts the facility and severity names from an RFC
// 3164 priority value. Priorities beyond the valid range (> 191) yield
// two empty strings, per spec §4.C.
func ParsePriority(priority int) (facility, severity string) {
	if priority < 0 || priority > 191 {
		return ``, ``
	}
	f := priority / 8
	s := priority % 8
	if f < 0 || f >= len(Facilities) {
		return ``, ``
	}
	return Facilities[f], Severities[s]
}

// ParseSyslog parses a single RFC 3164 syslog line into an Event,
// optionally merging an `@cee:` structured-data tail. tz supplies the
// timezone for the timestamp-without-year/zone the format carries; if
// nil, time.Local is used. If the line does not match the RFC 3164
// grammar at all, the entire input becomes the message field.
func ParseSyslog(line string, tz *time.Location) event.Event {
	ev := event.Event{Extra: make(map[string]interface{})}

	match := reSyslog.FindStringSubmatch(line)
	if match == nil {
		ev.Message = line
		return ev
	}

	names := reSyslog.SubexpNames()
	fields := make(map[string]string, len(names))
	for i, name := range names {
		if i == 0 || name == `` {
			continue
		}
		fields[name] = match[i]
	}

	if pri, err := strconv.Atoi(fields[`priority`]); err == nil {
		facility, severity := ParsePriority(pri)
		if facility != `` {
			ev.Facility = facility
		}
		if severity != `` {
			ev.Severity = severity
		}
	}

	if ts, err := parseSyslogTimestamp(fields[`timestamp`], tz); err == nil {
		ev.Timestamp = float64(ts.UTC().Unix())
	} else {
		logrus.Warnf(`SyslogIngress, failed to parse timestamp %q: %s`, fields[`timestamp`], err)
	}

	ev.Hostname = fields[`hostname`]
	ev.Set(`tag`, fields[`tag`])
	if fields[`pid`] != `` {
		ev.Set(`pid`, fields[`pid`])
	}

	content := fields[`content`]
	if loc := reCEE.FindStringSubmatchIndex(content); loc != nil {
		head := content[:loc[0]]
		tail := content[loc[2]:loc[3]]

		var structured map[string]interface{}
		if err := json.Unmarshal([]byte(tail), &structured); err != nil {
			logrus.Warnf(`SyslogIngress, failed to parse @cee: structured data: %s`, err)
			ev.Message = content
		} else {
			ev.Message = head
			for k, v := range structured {
				ev.Set(k, v)
			}
		}
	} else {
		ev.Message = content
	}

	return ev
}

// parseSyslogTimestamp parses the fixed "Mon _2 15:04:05" RFC 3164
// timestamp (no year, no zone), attaching the current year and tz. It
// falls back to dateparse for any oddly-formatted timestamp a strict
// layout parse rejects, mirroring the flexibility python-dateutil gave
// the original implementation.
func parseSyslogTimestamp(raw string, tz *time.Location) (time.Time, error) {
	if tz == nil {
		tz = time.Local
	}

	collapsed := collapseSpaces(raw)
	year := syslogNow().In(tz).Year()
	layout := `Jan 2 15:04:05 2006`
	t, err := time.ParseInLocation(layout, fmt.Sprintf(`%s %d`, collapsed, year), tz)
	if err == nil {
		return fixupYearBoundary(t, tz), nil
	}

	t, err = dateparse.ParseIn(raw, tz)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// fixupYearBoundary nudges a timestamp that appears to be in the future
// relative to now back one year; this handles messages logged in
// December and received/parsed in January.
func fixupYearBoundary(t time.Time, tz *time.Location) time.Time {
	now := syslogNow().In(tz)
	if t.After(now.Add(24 * time.Hour)) {
		return t.AddDate(-1, 0, 0)
	}
	return t
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, ` `)
}

// Normalize applies the common-event-model invariants of spec §3 to a
// freshly parsed syslog Event: tag -> appname, severity -> logLevel via
// the fixed mapping, category defaults to "syslog", and an optional
// hostname rewrite is applied. facility and severity are cleared once
// logLevel has been derived (spec §3: "syslog-derived before
// normalization ... removed after").
func Normalize(ev event.Event, hostnames map[string]string) event.Event {
	if tag, ok := ev.Get(`tag`); ok {
		if s, ok := tag.(string); ok {
			ev.Appname = s
		}
		delete(ev.Extra, `tag`)
	}

	if ev.Severity != `` {
		if lvl, ok := severityToLogLevel[strings.ToLower(ev.Severity)]; ok {
			ev.LogLevel = lvl
		}
		ev.Severity = ``
	}
	ev.Facility = ``

	if ev.Category == `` {
		ev.Category = `syslog`
	}

	if hostnames != nil {
		if rewritten, ok := hostnames[ev.Hostname]; ok {
			ev.Hostname = rewritten
		} else if rewritten, ok := hostnames[``]; ok && ev.Hostname == `` {
			ev.Hostname = rewritten
		}
	}

	return ev
}

// SyslogListener reads RFC 3164 lines off a UDP or Unix datagram socket,
// parses and normalizes each into an Event, and dispatches it.
type SyslogListener struct {
	conn       net.PacketConn
	dispatcher *dispatch.Dispatcher
	tz         *time.Location
	hostnames  map[string]string
}

// NewSyslogListener returns a listener reading from conn. tz is the
// timezone attached to the timestamp-without-zone syslog carries;
// hostnames is an optional rewrite map applied during normalization.
func NewSyslogListener(conn net.PacketConn, d *dispatch.Dispatcher, tz *time.Location, hostnames map[string]string) *SyslogListener {
	return &SyslogListener{conn: conn, dispatcher: d, tz: tz, hostnames: hostnames}
}

// Serve reads datagrams until the socket is closed or a persistent read
// error occurs.
func (s *SyslogListener) Serve() error {
	buf := make([]byte, MaxDatagramSize)
	for {
		size, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		s.handle(string(buf[:size]))
	}
}

func (s *SyslogListener) handle(line string) {
	ev := ParseSyslog(line, s.tz)
	ev = Normalize(ev, s.hostnames)
	if ev.Timestamp == 0 {
		ev.Timestamp = nowSeconds()
	}
	metrics.Mark(`/udplog/received.per.second`)
	s.dispatcher.Dispatch(ev)
	metrics.Mark(`/udplog/dispatched.per.second`)
}
