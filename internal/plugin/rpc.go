// Package plugin runs database drivers as child processes and proxies the
// driver contract to them over newline-delimited JSON-RPC 2.0 on the child's
// standard input and output. Standard error is piped into the host logger.
//
// One Process owns one child. Arbitrarily many requests may be in flight
// concurrently; replies are correlated strictly by request id, never by
// arrival order.
package plugin

import "encoding/json"

// Request is one JSON-RPC 2.0 request frame, serialized as a single line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      uint64          `json:"id"`
}

// RPCError is the error member of a failed response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is one JSON-RPC 2.0 response frame. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}
