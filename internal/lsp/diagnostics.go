package lsp

// Severity codes reported by the peer.
const (
	severityError   = 1
	severityWarning = 2
	// 3 (information) and 4 (hint) are dropped.
)

// RawDiagnostic is one issue as reported on the wire: 0-based range and
// an integer severity code.
type RawDiagnostic struct {
	Range    RawRange `json:"range"`
	Severity int      `json:"severity"`
	Message  string   `json:"message"`
}

// RawRange carries the start of the issue's range. The end is not used.
type RawRange struct {
	Start RawPosition `json:"start"`
}

// RawPosition is a 0-based wire coordinate.
type RawPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Diagnostic is one translated issue with 1-based coordinates and a
// closed severity taxonomy.
type Diagnostic struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error" or "warning"
}

// Translate splits raw diagnostics into errors and warnings, converting
// coordinates to 1-based. Severities outside the taxonomy are discarded.
// Input order is preserved within each output list.
func Translate(raw []RawDiagnostic) (errs, warns []Diagnostic) {
	for _, r := range raw {
		d := Diagnostic{
			Line:    r.Range.Start.Line + 1,
			Column:  r.Range.Start.Column + 1,
			Message: r.Message,
		}
		switch r.Severity {
		case severityError:
			d.Severity = "error"
			errs = append(errs, d)
		case severityWarning:
			d.Severity = "warning"
			warns = append(warns, d)
		}
	}
	return errs, warns
}
