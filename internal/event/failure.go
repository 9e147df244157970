/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package event // import "github.com/mjolnir42/udplogd/internal/event"

// AugmentWithError renders an error into the exception triple
// (excType/excValue/excText) on ev, defaulting logLevel to ERROR and
// message to why (or errValue if why is empty, or errType if both are
// empty). This ports
// udplog.py's augmentWithFailure for any sink that needs to report a
// delivery failure as a log event of its own.
func AugmentWithError(ev *Event, errType, errValue, errText, why string) {
	ev.ExcText = errText
	ev.ExcType = errType
	ev.ExcValue = errValue
	if ev.LogLevel == `` {
		ev.LogLevel = Error
	}

	switch {
	case why != ``:
		ev.Message = why
	case errValue != ``:
		ev.Message = errValue
	default:
		ev.Message = errType
	}
}

// Meta builds the self-describing udplog meta-event for a datagram that
// failed to send because it exceeded the size cap. size is the
// pre-trim byte length of the serialized original event.
func Meta(original Event, size int, why string) Event {
	meta := New(MetaCategory)
	meta.Timestamp = original.Timestamp

	AugmentWithError(&meta, `udplog.OversizeDatagram`, why, why, why)
	meta.LogLevel = Warning

	inner := map[string]interface{}{
		`category`:  original.Category,
		`timestamp`: original.Timestamp,
	}

	if original.Message != `` {
		text := original.Message
		if len(text) > MaxTrimmedMessageSize {
			meta.Set(`original_message_size`, len(text))
			text = text[:MaxTrimmedMessageSize-4] + `[..]`
		}
		inner[`message`] = text
	}

	if original.LogLevel != `` {
		inner[`logLevel`] = string(original.LogLevel)
	}
	if original.LogName != `` {
		inner[`logName`] = original.LogName
	}
	if original.ExcText != `` {
		inner[`excText`] = original.ExcText
	}
	if original.ExcType != `` {
		inner[`excType`] = original.ExcType
	}
	if original.ExcValue != `` {
		inner[`excValue`] = original.ExcValue
	}
	if original.Lineno != 0 {
		inner[`lineno`] = original.Lineno
	}
	if original.Filename != `` {
		inner[`filename`] = original.Filename
	}
	if original.FuncName != `` {
		inner[`funcName`] = original.FuncName
	}

	meta.Set(`original`, inner)
	meta.Set(`original_size`, size)

	return meta
}
