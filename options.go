package hashstore

import (
	"log/slog"
	"os"
)

const defaultSyncOnFlush = true

type config struct {
	logger      *slog.Logger
	syncOnFlush bool
}

func defaultConfig() config {
	return config{
		logger:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
		syncOnFlush: defaultSyncOnFlush,
	}
}

// Option configures a Store at Open time.
type Option func(*config)

func (c *config) apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithLogger sets the logger a Store uses for its own diagnostics (a
// notice on open and one per CAS retry, both at Debug level). The default
// logs to stderr at Info level and above, so it does not print those
// notices.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSyncOnFlush controls whether Flush fsyncs the append-only handle in
// addition to msyncing the mapped root table. The default is true; with
// false, appended records reach disk on the kernel's own schedule.
func WithSyncOnFlush(syncOnFlush bool) Option {
	return func(c *config) {
		c.syncOnFlush = syncOnFlush
	}
}
