// Package transport implements the line-delimited JSON-RPC 2.0 framing this
// gateway speaks to both its upstream child processes and the agent that
// connects to the gateway itself.
package transport

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the MCP protocol version this gateway advertises to
// the agent and sends to every upstream in the initialize handshake. The
// version an upstream answers with is not checked.
const ProtocolVersion = "2024-11-05"

// Request is a JSON-RPC 2.0 request object. A Request with a nil ID is a
// notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether this message carries no id.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC 2.0 response object. Exactly one of Result or
// Error is populated.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application-level error codes, reserved above -32000.
const (
	CodeApplicationError = -32000
)

// NewRequest builds a request with the given id, method, and params.
func NewRequest(id any, method string, params any) (Request, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("marshaling params for %s: %w", method, err)
		}
		raw = data
	}
	return Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification (no id) with the given method and
// params.
func NewNotification(method string, params any) (Request, error) {
	req, err := NewRequest(nil, method, params)
	if err != nil {
		return Request{}, err
	}
	req.ID = nil
	return req, nil
}

// NewResultResponse builds a successful response.
func NewResultResponse(id any, result any) (Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling result: %w", err)
	}
	return Response{JSONRPC: "2.0", ID: id, Result: data}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id any, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}
