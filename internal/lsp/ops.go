package lsp

import (
	"context"
	"encoding/json"
	"strings"
)

// High-level operations. Each auto-connects if needed and degrades to an
// empty result on any failure — a missing or unresponsive language server
// is recoverable, not fatal.

// CompletionItem is one completion suggestion.
type CompletionItem struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
}

// Location is a definition site with 1-based coordinates.
type Location struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// ensure returns true when the client is usable, connecting on demand.
func (c *Client) ensure(ctx context.Context) bool {
	if c.IsConnected() {
		return true
	}
	return c.Connect(ctx)
}

func fileURI(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// uriPath strips the scheme from a file uri for display.
func uriPath(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[i+3:]
	}
	return uri
}

// Diagnostics validates a script file and returns its errors and
// warnings, translated to 1-based coordinates.
func (c *Client) Diagnostics(ctx context.Context, path string) (errs, warns []Diagnostic) {
	if !c.ensure(ctx) {
		return nil, nil
	}
	params := documentParams{TextDocument: textDocument{URI: fileURI(path)}}
	payload, err := c.Request(ctx, "textDocument/diagnostic", params, 0)
	if err != nil {
		c.logger().Debugw("diagnostics failed", "path", path, "err", err)
		return nil, nil
	}
	return Translate(decodeDiagnostics(payload))
}

// decodeDiagnostics accepts either a bare array or an object wrapping it
// under "diagnostics" or "items"; any other shape yields nothing.
func decodeDiagnostics(payload json.RawMessage) []RawDiagnostic {
	var list []RawDiagnostic
	if err := json.Unmarshal(payload, &list); err == nil {
		return list
	}
	var wrapped struct {
		Diagnostics []RawDiagnostic `json:"diagnostics"`
		Items       []RawDiagnostic `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil
	}
	if len(wrapped.Diagnostics) > 0 {
		return wrapped.Diagnostics
	}
	return wrapped.Items
}

// Completions returns completion suggestions at a 0-based position.
func (c *Client) Completions(ctx context.Context, path string, line, column int) []CompletionItem {
	if !c.ensure(ctx) {
		return nil
	}
	params := positionParams{
		TextDocument: textDocument{URI: fileURI(path)},
		Position:     position{Line: line, Column: column},
	}
	payload, err := c.Request(ctx, "textDocument/completion", params, 0)
	if err != nil {
		c.logger().Debugw("completion failed", "path", path, "err", err)
		return nil
	}

	var items []CompletionItem
	if err := json.Unmarshal(payload, &items); err == nil {
		return items
	}
	var wrapped struct {
		Items []CompletionItem `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil
	}
	return wrapped.Items
}

// Hover returns hover text at a 0-based position, or "" when there is
// nothing to show.
func (c *Client) Hover(ctx context.Context, path string, line, column int) string {
	if !c.ensure(ctx) {
		return ""
	}
	params := positionParams{
		TextDocument: textDocument{URI: fileURI(path)},
		Position:     position{Line: line, Column: column},
	}
	payload, err := c.Request(ctx, "textDocument/hover", params, 0)
	if err != nil {
		c.logger().Debugw("hover failed", "path", path, "err", err)
		return ""
	}

	// Contents arrive either as a plain string or as {value: string}.
	var wrapped struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil || wrapped.Contents == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(wrapped.Contents, &s); err == nil {
		return s
	}
	var v struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(wrapped.Contents, &v); err != nil {
		return ""
	}
	return v.Value
}

// Definitions returns definition sites for the symbol at a 0-based
// position, with 1-based output coordinates.
func (c *Client) Definitions(ctx context.Context, path string, line, column int) []Location {
	if !c.ensure(ctx) {
		return nil
	}
	params := positionParams{
		TextDocument: textDocument{URI: fileURI(path)},
		Position:     position{Line: line, Column: column},
	}
	payload, err := c.Request(ctx, "textDocument/definition", params, 0)
	if err != nil {
		c.logger().Debugw("definition failed", "path", path, "err", err)
		return nil
	}

	var raw []struct {
		URI   string   `json:"uri"`
		Range RawRange `json:"range"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil
	}
	locs := make([]Location, 0, len(raw))
	for _, r := range raw {
		locs = append(locs, Location{
			Path:   uriPath(r.URI),
			Line:   r.Range.Start.Line + 1,
			Column: r.Range.Start.Column + 1,
		})
	}
	return locs
}
