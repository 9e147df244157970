/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package event // import "github.com/mjolnir42/udplogd/internal/event"

import (
	"fmt"
	"io"
	"os"
)

// Sender writes framed events to a connected datagram socket, enforcing
// a size cap and falling back to a meta-event on oversize failure. It
// models the producer side of udplog.py's UDPLogger — out of this
// daemon's own data path, but part of the event model/serializer
// component (spec §4.A) and exercised by its tests.
type Sender struct {
	Conn    io.Writer
	MaxSize int
}

// NewSender returns a Sender with the default datagram size cap.
func NewSender(conn io.Writer) *Sender {
	return &Sender{Conn: conn, MaxSize: MaxDatagramSize}
}

// Send encodes ev and writes it to the underlying connection. If the
// encoded datagram exceeds MaxSize, a udplog meta-event describing the
// failure is sent instead; if even that fails, the failure is written to
// stderr exactly once and discarded.
func (s *Sender) Send(ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}

	maxSize := s.MaxSize
	if maxSize <= 0 {
		maxSize = MaxDatagramSize
	}

	if len(data) <= maxSize {
		_, err := s.Conn.Write(data)
		if err == nil {
			return nil
		}
		return s.sendFailure(ev, len(data), fmt.Sprintf(`Failed to send udplog message: %s`, err))
	}

	return s.sendFailure(ev, len(data), `Failed to send udplog message: datagram exceeds size cap`)
}

func (s *Sender) sendFailure(ev Event, size int, why string) error {
	meta := Meta(ev, size, why)
	data, err := Encode(meta)
	if err != nil {
		fmt.Fprintln(os.Stderr, why)
		return err
	}

	if _, err := s.Conn.Write(data); err != nil {
		fmt.Fprintln(os.Stderr, why)
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
