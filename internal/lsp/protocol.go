// Package lsp implements the client side of the engine's script language
// server: one TCP connection carrying newline-delimited JSON envelopes,
// with concurrent requests multiplexed by correlation id.
package lsp

import "encoding/json"

// protocolVersion is the fixed value carried in every envelope.
const protocolVersion = "2.0"

// envelope is one newline-delimited message unit. Requests carry an id,
// method, and params; responses echo the id with a result (or params, for
// peers that reply in request form); notifications carry a method only.
type envelope struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ID              *int64          `json:"id,omitempty"`
	Method          string          `json:"method,omitempty"`
	Params          json.RawMessage `json:"params,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
}

// payload returns the response body: result when present, params otherwise.
func (e *envelope) payload() json.RawMessage {
	if e.Result != nil {
		return e.Result
	}
	return e.Params
}

// initializeParams is the body of the handshake request.
type initializeParams struct {
	ProcessID    int            `json:"processId"`
	RootURI      string         `json:"rootUri"`
	Capabilities map[string]any `json:"capabilities"`
}

// textDocument identifies a script file by uri.
type textDocument struct {
	URI string `json:"uri"`
}

// position is a protocol coordinate pair. Both fields are 0-based on the
// wire; user-facing output is converted to 1-based.
type position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// documentParams addresses a whole file.
type documentParams struct {
	TextDocument textDocument `json:"textDocument"`
}

// positionParams addresses a point in a file.
type positionParams struct {
	TextDocument textDocument `json:"textDocument"`
	Position     position     `json:"position"`
}
