package diagnostics

import (
	"errors"
	"fmt"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// AssetKind names the two asset types the viewer fetches.
type AssetKind string

const (
	IntersectionAsset AssetKind = "intersection"
	MeshAsset         AssetKind = "mesh"
)

// AssetFetchError reports an intersection index or mesh that failed to load or parse.
// Col is -1 for per-row assets.
type AssetFetchError struct {
	Kind AssetKind
	Row  int
	Col  int
	URL  string
	Err  error
}

func (e *AssetFetchError) Error() string {
	if e.Col < 0 {
		return fmt.Sprintf("fetch %s for row %d (%s): %v", e.Kind, e.Row, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s for cell %d,%d (%s): %v", e.Kind, e.Row, e.Col, e.URL, e.Err)
}

func (e *AssetFetchError) Unwrap() error { return e.Err }

// ConfigurationError reports invalid grid or viewer settings.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigurationError.
func Configf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FromError maps an error to a Diagnostic for the diagnostics channel.
func FromError(err error) Diagnostic {
	var fe *AssetFetchError
	if errors.As(err, &fe) {
		ev := map[string]any{"kind": string(fe.Kind), "row": fe.Row, "url": fe.URL}
		if fe.Col >= 0 {
			ev["col"] = fe.Col
		}
		return Diagnostic{
			Severity: Warn,
			Code:     "ASSET.FETCH",
			Summary:  "Asset failed to load",
			Detail:   err.Error(),
			LikelyCauses: []string{
				"file missing from the test case folder",
				"malformed OBJ or JSON content",
			},
			Evidence: ev,
		}
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return Diagnostic{
			Severity:       Err,
			Code:           "CONFIG.INVALID",
			Summary:        "Invalid configuration",
			Detail:         err.Error(),
			SuggestedFixes: []string{"check " + ce.Field + " in config"},
			Evidence:       map[string]any{"field": ce.Field},
		}
	}
	return Diagnostic{Severity: Err, Code: "INTERNAL", Summary: "Unexpected error", Detail: err.Error()}
}
