package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySession    = "session_id"
	KeyWorkspace  = "workspace"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyArtifact   = "artifact"
	KeyMode       = "mode"
	KeyCount      = "count"
	KeySize       = "size_bytes"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr   { return slog.String(KeySession, Abbrev(id)) }
func Workspace(w string) slog.Attr    { return slog.String(KeyWorkspace, Abbrev(w)) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Artifact(a string) slog.Attr     { return slog.String(KeyArtifact, a) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func SizeBytes(n int64) slog.Attr     { return slog.Int64(KeySize, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Abbrev shortens opaque session tokens for log readability. Full tokens stay
// out of the shared log stream so it never leaks a usable identifier.
func Abbrev(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
