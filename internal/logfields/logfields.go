package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID  = "build_id"
	KeyStage    = "stage"
	KeyPlatform = "platform"
	KeyTarget   = "target"
	KeyPath     = "path"
	KeyArchive  = "archive"
	KeyCommand  = "command"
	KeyVersion  = "version"
	KeyCommit   = "commit"
	KeyError    = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func Platform(p string) slog.Attr { return slog.String(KeyPlatform, p) }
func Target(t string) slog.Attr   { return slog.String(KeyTarget, t) }
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }
func Archive(a string) slog.Attr  { return slog.String(KeyArchive, a) }
func Command(c string) slog.Attr  { return slog.String(KeyCommand, c) }
func Version(v string) slog.Attr  { return slog.String(KeyVersion, v) }
func Commit(c string) slog.Attr   { return slog.String(KeyCommit, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
