package docweaver

import "log/slog"

// Default directive markers.
const (
	DefaultStartMarker = "%$"
	DefaultEndMarker   = "$%"
)

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithMarkers replaces the directive markers. Empty markers are ignored.
func WithMarkers(start, end string) Option {
	return func(p *Preprocessor) {
		if start != "" && end != "" {
			p.scan = scanner{startMark: start, endMark: end}
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Preprocessor) {
		if l != nil {
			p.logger = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
