package zarr

import "log/slog"

var logger = slog.Default()

// SetLogger sets the logger used for chunk-level debug output. A nil logger
// restores slog.Default().
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	logger = l
}
