/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package ingress implements the two wire-format parsers that feed the
// Dispatcher: the native `category:\t{json}` UDP datagram (spec §4.B)
// and RFC 3164 syslog (spec §4.C).
package ingress // import "github.com/mjolnir42/udplogd/internal/ingress"

import (
	"bytes"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/metrics"
)

// MaxDatagramSize is the maximum UDP datagram accepted on the native
// ingress port, per spec §4.B / §6.
const MaxDatagramSize = 65536

// NativeListener reads framed native-format datagrams off a UDP or Unix
// datagram socket and dispatches the decoded Event.
type NativeListener struct {
	conn       net.PacketConn
	dispatcher *dispatch.Dispatcher
}

// NewNativeListener returns a listener reading from conn.
func NewNativeListener(conn net.PacketConn, d *dispatch.Dispatcher) *NativeListener {
	return &NativeListener{conn: conn, dispatcher: d}
}

// Serve reads datagrams from the socket until it is closed or a
// persistent read error occurs, decoding and dispatching each one.
func (n *NativeListener) Serve() error {
	buf := make([]byte, MaxDatagramSize)
	for {
		size, _, err := n.conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		n.handle(buf[:size])
	}
}

// handle decodes a single datagram and forwards it to the Dispatcher.
// Decode failures are logged and the datagram is dropped, per spec §4.B.
func (n *NativeListener) handle(raw []byte) {
	trimmed := bytes.TrimRight(raw, " \t\r\n")

	ev, err := event.Decode(trimmed)
	if err != nil {
		metrics.Mark(`/udplog/dropped.per.second`)
		logrus.Warnf(`NativeIngress, dropping malformed datagram: %s`, err)
		return
	}
	metrics.Mark(`/udplog/received.per.second`)
	if ev.Timestamp == 0 {
		ev.Timestamp = nowSeconds()
	}

	n.dispatcher.Dispatch(ev)
	metrics.Mark(`/udplog/dispatched.per.second`)
}
