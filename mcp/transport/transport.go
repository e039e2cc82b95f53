// Package transport defines the JSON-RPC 2.0 framing shared by all MCP
// transports and the Transport capability every concrete variant implements.
package transport

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// RequestId is a JSON-RPC request identifier.
type RequestId int64

// JsonRpcBody is any marshalable JSON-RPC result payload.
type JsonRpcBody any

// BaseJSONRPCRequest is an outgoing or incoming JSON-RPC request.
type BaseJSONRPCRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      RequestId       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// BaseJSONRPCNotification is a one-way JSON-RPC message without an id.
type BaseJSONRPCNotification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// BaseJSONRPCResponse is a successful JSON-RPC response.
type BaseJSONRPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      RequestId       `json:"id"`
	Result  json.RawMessage `json:"result"`
}

// BaseJSONRPCErrorInner is the error object of an error response.
type BaseJSONRPCErrorInner struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BaseJSONRPCError is a JSON-RPC error response.
type BaseJSONRPCError struct {
	Jsonrpc string                `json:"jsonrpc"`
	Id      RequestId             `json:"id"`
	Error   BaseJSONRPCErrorInner `json:"error"`
}

// BaseMessageType discriminates the BaseJsonRpcMessage union.
type BaseMessageType string

const (
	BaseMessageTypeJSONRPCRequestType      BaseMessageType = "request"
	BaseMessageTypeJSONRPCNotificationType BaseMessageType = "notification"
	BaseMessageTypeJSONRPCResponseType     BaseMessageType = "response"
	BaseMessageTypeJSONRPCErrorType        BaseMessageType = "error"
)

// BaseJsonRpcMessage is a tagged union over the four JSON-RPC message kinds.
type BaseJsonRpcMessage struct {
	Type                BaseMessageType
	JsonRpcRequest      *BaseJSONRPCRequest
	JsonRpcNotification *BaseJSONRPCNotification
	JsonRpcResponse     *BaseJSONRPCResponse
	JsonRpcError        *BaseJSONRPCError
}

// NewBaseMessageRequest wraps a request into the union.
func NewBaseMessageRequest(request *BaseJSONRPCRequest) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:           BaseMessageTypeJSONRPCRequestType,
		JsonRpcRequest: request,
	}
}

// NewBaseMessageNotification wraps a notification into the union.
func NewBaseMessageNotification(notification *BaseJSONRPCNotification) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:                BaseMessageTypeJSONRPCNotificationType,
		JsonRpcNotification: notification,
	}
}

// NewBaseMessageResponse wraps a response into the union.
func NewBaseMessageResponse(response *BaseJSONRPCResponse) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:            BaseMessageTypeJSONRPCResponseType,
		JsonRpcResponse: response,
	}
}

// NewBaseMessageError wraps an error response into the union.
func NewBaseMessageError(errResp *BaseJSONRPCError) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:         BaseMessageTypeJSONRPCErrorType,
		JsonRpcError: errResp,
	}
}

// MessageID returns the request id of the wrapped message, or 0 for notifications.
func (m *BaseJsonRpcMessage) MessageID() RequestId {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return m.JsonRpcRequest.Id
	case BaseMessageTypeJSONRPCResponseType:
		return m.JsonRpcResponse.Id
	case BaseMessageTypeJSONRPCErrorType:
		return m.JsonRpcError.Id
	default:
		return 0
	}
}

// MarshalJSON marshals the wrapped message.
func (m *BaseJsonRpcMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return json.Marshal(m.JsonRpcRequest)
	case BaseMessageTypeJSONRPCNotificationType:
		return json.Marshal(m.JsonRpcNotification)
	case BaseMessageTypeJSONRPCResponseType:
		return json.Marshal(m.JsonRpcResponse)
	case BaseMessageTypeJSONRPCErrorType:
		return json.Marshal(m.JsonRpcError)
	}
	return nil, errors.Errorf("unknown message type: %s", m.Type)
}

// envelope is used to discriminate incoming messages by their populated fields.
type envelope struct {
	Jsonrpc string           `json:"jsonrpc"`
	Id      *RequestId       `json:"id"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params"`
	Result  json.RawMessage  `json:"result"`
	Error   *json.RawMessage `json:"error"`
}

// ParseJsonRpcMessage decodes raw bytes into the proper union member.
// Requests carry both an id and a method, notifications only a method,
// responses an id and a result, errors an id and an error object.
func ParseJsonRpcMessage(data []byte) (*BaseJsonRpcMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "invalid JSON-RPC message")
	}

	switch {
	case env.Method != "" && env.Id != nil:
		return NewBaseMessageRequest(&BaseJSONRPCRequest{
			Jsonrpc: env.Jsonrpc,
			Id:      *env.Id,
			Method:  env.Method,
			Params:  env.Params,
		}), nil
	case env.Method != "":
		return NewBaseMessageNotification(&BaseJSONRPCNotification{
			Jsonrpc: env.Jsonrpc,
			Method:  env.Method,
			Params:  env.Params,
		}), nil
	case env.Error != nil && env.Id != nil:
		resp := &BaseJSONRPCError{
			Jsonrpc: env.Jsonrpc,
			Id:      *env.Id,
		}
		if err := json.Unmarshal(*env.Error, &resp.Error); err != nil {
			return nil, errors.Wrap(err, "invalid JSON-RPC error object")
		}
		return NewBaseMessageError(resp), nil
	case env.Id != nil:
		return NewBaseMessageResponse(&BaseJSONRPCResponse{
			Jsonrpc: env.Jsonrpc,
			Id:      *env.Id,
			Result:  env.Result,
		}), nil
	}
	return nil, errors.New("message is neither request, notification, response nor error")
}

// Transport is a single bidirectional channel to one MCP peer.
// Implementations are owned by exactly one protocol instance.
type Transport interface {
	// Start opens the underlying channel and begins reading messages.
	Start(ctx context.Context) error
	// Send transmits a message to the peer.
	Send(ctx context.Context, message *BaseJsonRpcMessage) error
	// Close releases the channel. Safe to call more than once.
	Close() error

	// SetMessageHandler sets the callback for received messages.
	SetMessageHandler(handler func(ctx context.Context, message *BaseJsonRpcMessage))
	// SetErrorHandler sets the callback for out-of-band errors.
	SetErrorHandler(handler func(error))
	// SetCloseHandler sets the callback invoked when the channel closes.
	SetCloseHandler(handler func())
}
