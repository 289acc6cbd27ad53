package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/workflow-pipelines/internal/models"
)

var errWriterNotInitialised = errors.New("output: writer not initialised")

// ErrWriterNotInitialised exposes the sentinel error for callers and tests.
func ErrWriterNotInitialised() error {
	return errWriterNotInitialised
}

// ResultPublisher writes workflow envelopes to a sink, one JSON document per
// envelope.
type ResultPublisher struct {
	w      io.Writer
	pretty bool
	logger zerolog.Logger
}

// NewResultPublisher constructs a ResultPublisher. pretty selects indented
// output.
func NewResultPublisher(w io.Writer, pretty bool, logger zerolog.Logger) *ResultPublisher {
	if w == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &ResultPublisher{
		w:      w,
		pretty: pretty,
		logger: logger,
	}
}

// Publish writes res followed by a newline.
func (p *ResultPublisher) Publish(res *models.WorkflowResult) error {
	if p == nil || p.w == nil {
		return errWriterNotInitialised
	}
	if res == nil {
		return errors.New("output: nil workflow result")
	}

	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	if p.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("output: encode workflow result: %w", err)
	}

	p.logger.Debug().
		Str("workflow_id", res.WorkflowID).
		Str("status", string(res.Status)).
		Msg("workflow result published")
	return nil
}
