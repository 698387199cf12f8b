// Package cli implements the gitlanes command-line interface.
//
// The CLI lays out a repository's commit graph in lanes and writes the
// result in the formats of the pipeline package. It is built on cobra, logs
// through charmbracelet/log and reads defaults from a TOML config file.
//
// # Commands
//
//   - render: Draw a repository as SVG, JSON, Graphviz, PNG or PDF
//   - layout: Write the lane layout as JSON
//   - export: Snapshot a repository's history into a JSON or YAML file
//   - serve: Answer graph requests over HTTP
//   - browse: Scroll through the lanes in the terminal
//   - cache: Inspect and clear cached results
//
// A repository argument is a working tree or an exported snapshot; snapshots
// are read without git.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so commands and the server share one
// configured logger.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes level-filtered lines stamped "15:04:05.00" to w.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command stage.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time, e.g.
// "Exported history commits=120 tags=3 took=41ms".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
