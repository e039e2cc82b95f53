package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/mcp/transport"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp", "mcp")

// DefaultRequestTimeout bounds a single request/response round trip.
const DefaultRequestTimeout = 60 * time.Second

// RequestOptions contains options that can be given per request.
type RequestOptions struct {
	// Timeout overrides DefaultRequestTimeout for this request.
	Timeout time.Duration
}

// protocol implements JSON-RPC request/response correlation on top of a
// pluggable transport. It is owned by exactly one Client.
type protocol struct {
	transport transport.Transport

	mu               sync.Mutex
	requestMessageID transport.RequestId
	responseHandlers map[transport.RequestId]chan *responseEnvelope

	// OnClose is invoked once when the connection closes for any reason.
	OnClose func()
}

type responseEnvelope struct {
	result json.RawMessage
	err    error
}

func newProtocol() *protocol {
	return &protocol{
		responseHandlers: make(map[transport.RequestId]chan *responseEnvelope),
	}
}

// Connect attaches to the transport, starts it, and begins routing messages.
func (p *protocol) Connect(ctx context.Context, tr transport.Transport) error {
	p.transport = tr

	tr.SetCloseHandler(func() {
		p.handleClose()
	})
	tr.SetErrorHandler(func(err error) {
		logger.KV(xlog.WARNING, "status", "transport_error", "err", err.Error())
	})
	tr.SetMessageHandler(func(ctx context.Context, message *transport.BaseJsonRpcMessage) {
		switch message.Type {
		case transport.BaseMessageTypeJSONRPCResponseType:
			p.handleResponse(message.JsonRpcResponse.Id, message.JsonRpcResponse.Result, nil)
		case transport.BaseMessageTypeJSONRPCErrorType:
			e := message.JsonRpcError
			p.handleResponse(e.Id, nil,
				errors.Errorf("RPC error %d: %s", e.Error.Code, e.Error.Message))
		case transport.BaseMessageTypeJSONRPCNotificationType:
			logger.KV(xlog.DEBUG, "notification", message.JsonRpcNotification.Method)
		case transport.BaseMessageTypeJSONRPCRequestType:
			// Providers in this system never call back into the client.
			logger.KV(xlog.DEBUG, "status", "unexpected_request", "method", message.JsonRpcRequest.Method)
		}
	})

	return tr.Start(ctx)
}

func (p *protocol) handleClose() {
	p.mu.Lock()
	for id, ch := range p.responseHandlers {
		// The buffer may already hold a response the requester abandoned
		// on timeout; a blocking send here would stall against the
		// requester's deferred cleanup.
		select {
		case ch <- &responseEnvelope{err: errors.New("connection closed")}:
		default:
		}
		close(ch)
		delete(p.responseHandlers, id)
	}
	onClose := p.OnClose
	p.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

func (p *protocol) handleResponse(id transport.RequestId, result json.RawMessage, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := p.responseHandlers[id]
	if ch == nil {
		logger.KV(xlog.DEBUG, "status", "orphan_response", "id", id)
		return
	}
	select {
	case ch <- &responseEnvelope{result: result, err: err}:
	default:
		logger.KV(xlog.DEBUG, "status", "duplicate_response", "id", id)
	}
}

// Request sends a request and waits for the correlated response.
func (p *protocol) Request(ctx context.Context, method string, params any, opts *RequestOptions) (json.RawMessage, error) {
	if p.transport == nil {
		return nil, errors.New("not connected")
	}

	timeout := DefaultRequestTimeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	p.mu.Lock()
	p.requestMessageID++
	id := p.requestMessageID
	ch := make(chan *responseEnvelope, 1)
	p.responseHandlers[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.responseHandlers, id)
		p.mu.Unlock()
	}()

	marshalled, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal params")
	}

	request := &transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      id,
		Method:  method,
		Params:  marshalled,
	}
	if err := p.transport.Send(ctx, transport.NewBaseMessageRequest(request)); err != nil {
		return nil, errors.Wrapf(err, "failed to send request: %s", method)
	}

	select {
	case envelope := <-ch:
		if envelope.err != nil {
			return nil, envelope.err
		}
		return envelope.result, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "request cancelled: %s", method)
	case <-time.After(timeout):
		return nil, errors.Errorf("request timeout after %v: %s", timeout, method)
	}
}

// Notification emits a one-way message that does not expect a response.
func (p *protocol) Notification(ctx context.Context, method string, params any) error {
	if p.transport == nil {
		return errors.New("not connected")
	}

	marshalled, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification params")
	}
	notification := &transport.BaseJSONRPCNotification{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  marshalled,
	}
	return p.transport.Send(ctx, transport.NewBaseMessageNotification(notification))
}

// Close closes the underlying transport.
func (p *protocol) Close() error {
	if p.transport == nil {
		return nil
	}
	return p.transport.Close()
}
