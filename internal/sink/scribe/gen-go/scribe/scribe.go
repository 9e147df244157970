// Hand-written Thrift binding for the scribe.thrift IDL, in the shape
// of Thrift Compiler (0.19.0) output. Limited to the single Log RPC
// this daemon calls.

package scribe

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Scribe is the client interface for the scribe Log RPC.
type Scribe interface {
	// Log ships a batch of LogEntry records; the server's ResultCode
	// tells the caller whether to retry.
	Log(ctx context.Context, messages []*LogEntry) (r ResultCode, err error)
}

// ScribeClient is a standard thrift RPC client implementing Scribe.
type ScribeClient struct {
	c    thrift.TClient
	meta thrift.ResponseMeta
}

// NewScribeClientFactory builds a ScribeClient over a transport using the
// given protocol factory for both input and output protocols.
func NewScribeClientFactory(t thrift.TTransport, f thrift.TProtocolFactory) *ScribeClient {
	return &ScribeClient{c: thrift.NewTStandardClient(f.GetProtocol(t), f.GetProtocol(t))}
}

// NewScribeClient builds a ScribeClient directly from an input/output
// protocol pair.
func NewScribeClient(iprot, oprot thrift.TProtocol) *ScribeClient {
	return &ScribeClient{c: thrift.NewTStandardClient(iprot, oprot)}
}

// Log implements Scribe.
func (p *ScribeClient) Log(ctx context.Context, messages []*LogEntry) (r ResultCode, err error) {
	var args ScribeLogArgs
	args.Messages = messages
	var result ScribeLogResult
	meta, err := p.c.Call(ctx, `Log`, &args, &result)
	p.meta = meta
	if err != nil {
		return
	}
	return result.Success, nil
}

// ScribeLogArgs is the wire struct for the Log() call's arguments.
type ScribeLogArgs struct {
	Messages []*LogEntry `thrift:"messages,1"`
}

// Write serializes the call arguments.
func (p *ScribeLogArgs) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, `Log_args`); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write struct begin error: `, p), err)
	}
	if err := oprot.WriteFieldBegin(ctx, `messages`, thrift.LIST, 1); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write field begin error 1:messages: `, p), err)
	}
	if err := oprot.WriteListBegin(ctx, thrift.STRUCT, len(p.Messages)); err != nil {
		return thrift.PrependError(`error writing list begin: `, err)
	}
	for _, v := range p.Messages {
		if err := v.Write(ctx, oprot); err != nil {
			return thrift.PrependError(fmt.Sprintf(`%T error writing field 1: `, p), err)
		}
	}
	if err := oprot.WriteListEnd(ctx); err != nil {
		return thrift.PrependError(`error writing list end: `, err)
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return thrift.PrependError(fmt.Sprintf(`%T write field stop error: `, p), err)
	}
	return oprot.WriteStructEnd(ctx)
}

// Read deserializes the call arguments (server-side use; kept for
// symmetry with generated code, unused by this daemon's client-only
// sink).
func (p *ScribeLogArgs) Read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, fieldTypeID, fieldID, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if fieldTypeID == thrift.STOP {
			break
		}
		if fieldID == 1 {
			_, size, err := iprot.ReadListBegin(ctx)
			if err != nil {
				return err
			}
			p.Messages = make([]*LogEntry, 0, size)
			for i := 0; i < size; i++ {
				e := &LogEntry{}
				if err := e.Read(ctx, iprot); err != nil {
					return err
				}
				p.Messages = append(p.Messages, e)
			}
			if err := iprot.ReadListEnd(ctx); err != nil {
				return err
			}
		} else if err := iprot.Skip(ctx, fieldTypeID); err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd(ctx)
}

func (p *ScribeLogArgs) String() string {
	return fmt.Sprintf(`Log_args({Messages:%v})`, p.Messages)
}

// ScribeLogResult is the wire struct for the Log() call's return value.
type ScribeLogResult struct {
	Success ResultCode `thrift:"success,0"`
}

// Write serializes the call result.
func (p *ScribeLogResult) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, `Log_result`); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin(ctx, `success`, thrift.I32, 0); err != nil {
		return err
	}
	if err := oprot.WriteI32(ctx, int32(p.Success)); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return err
	}
	return oprot.WriteStructEnd(ctx)
}

// Read deserializes the call result.
func (p *ScribeLogResult) Read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, fieldTypeID, fieldID, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if fieldTypeID == thrift.STOP {
			break
		}
		if fieldID == 0 {
			v, err := iprot.ReadI32(ctx)
			if err != nil {
				return err
			}
			p.Success = ResultCode(v)
		} else if err := iprot.Skip(ctx, fieldTypeID); err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd(ctx)
}

func (p *ScribeLogResult) String() string {
	return fmt.Sprintf(`Log_result({Success:%s})`, p.Success)
}
