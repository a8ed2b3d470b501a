// Package logfields names the structured logging keys shared across packages.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyEngine     = "engine"
	KeyPath       = "path"
	KeyPattern    = "pattern"
	KeyPermalink  = "permalink"
	KeyPlugin     = "plugin"
	KeyUnits      = "units"
	KeyGroups     = "groups"
	KeyPages      = "pages"
	KeyOutputs    = "outputs"
	KeyReason     = "reason"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Engine(name string) slog.Attr      { return slog.String(KeyEngine, name) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Pattern(p string) slog.Attr        { return slog.String(KeyPattern, p) }
func Permalink(p string) slog.Attr      { return slog.String(KeyPermalink, p) }
func Plugin(name string) slog.Attr      { return slog.String(KeyPlugin, name) }
func Units(n int) slog.Attr             { return slog.Int(KeyUnits, n) }
func Groups(n int) slog.Attr            { return slog.Int(KeyGroups, n) }
func Pages(n int) slog.Attr             { return slog.Int(KeyPages, n) }
func Outputs(n int) slog.Attr           { return slog.Int(KeyOutputs, n) }
func Reason(r string) slog.Attr         { return slog.String(KeyReason, r) }
func Addr(a string) slog.Attr           { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
