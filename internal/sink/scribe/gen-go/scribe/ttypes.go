// Hand-written Thrift binding for the scribe.thrift IDL
// (https://github.com/facebookarchive/scribe/blob/master/if/scribe.thrift),
// in the shape of Thrift Compiler (0.19.0) output. Limited to the Log
// RPC this daemon actually calls.

package scribe

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// ResultCode is the scribe thrift service's Log() return code.
type ResultCode int64

// ResultCode values, per scribe.thrift.
const (
	ResultCode_OK        ResultCode = 0
	ResultCode_TRY_LATER ResultCode = 1
)

func (p ResultCode) String() string {
	switch p {
	case ResultCode_OK:
		return `OK`
	case ResultCode_TRY_LATER:
		return `TRY_LATER`
	}
	return `<UNKNOWN ResultCode>`
}

// LogEntry is a single scribe log message: a category and an opaque
// message body.
type LogEntry struct {
	Category string `thrift:"category,1"`
	Message  string `thrift:"message,2"`
}

// NewLogEntry returns a LogEntry with the given category and message.
func NewLogEntry(category, message string) *LogEntry {
	return &LogEntry{Category: category, Message: message}
}

// Write serializes p onto oprot, following the struct layout scribe.thrift
// defines: field 1 (string category), field 2 (string message).
func (p *LogEntry) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, `LogEntry`); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write struct begin error: `, p), err)
	}

	if err := oprot.WriteFieldBegin(ctx, `category`, thrift.STRING, 1); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write field begin error 1:category: `, p), err)
	}
	if err := oprot.WriteString(ctx, p.Category); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T.category (1) field write error: `, p), err)
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return err
	}

	if err := oprot.WriteFieldBegin(ctx, `message`, thrift.STRING, 2); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write field begin error 2:message: `, p), err)
	}
	if err := oprot.WriteString(ctx, p.Message); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T.message (2) field write error: `, p), err)
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return err
	}

	if err := oprot.WriteFieldStop(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write field stop error: `, p), err)
	}
	if err := oprot.WriteStructEnd(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write struct end error: `, p), err)
	}
	return nil
}

// Read deserializes a LogEntry from iprot.
func (p *LogEntry) Read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T read error: `, p), err)
	}

	for {
		_, fieldTypeID, fieldID, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return thrift.PrependError(fmt.Sprintf(`%T field read error: `, p), err)
		}
		if fieldTypeID == thrift.STOP {
			break
		}
		switch fieldID {
		case 1:
			if v, err := iprot.ReadString(ctx); err != nil {
				return thrift.PrependError(`error reading field 1: `, err)
			} else {
				p.Category = v
			}
		case 2:
			if v, err := iprot.ReadString(ctx); err != nil {
				return thrift.PrependError(`error reading field 2: `, err)
			} else {
				p.Message = v
			}
		default:
			if err := iprot.Skip(ctx, fieldTypeID); err != nil {
				return err
			}
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	if err := iprot.ReadStructEnd(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T read struct end error: `, p), err)
	}
	return nil
}

func (p *LogEntry) String() string {
	if p == nil {
		return `<nil>`
	}
	return fmt.Sprintf(`LogEntry({Category:%s Message:%s})`, p.Category, p.Message)
}
