package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/workflow-pipelines/internal/models"
	"github.com/example/workflow-pipelines/internal/util"
)

// DefaultMaxInputBytes caps the raw input handed to a pipeline.
const DefaultMaxInputBytes = 100000

// Pipeline transforms one raw input into one structured payload.
type Pipeline interface {
	Type() models.WorkflowType
	Process(ctx context.Context, input []byte) (models.Payload, error)
}

// ProcessFunc adapts a function to the Pipeline interface.
type ProcessFunc func(ctx context.Context, input []byte) (models.Payload, error)

type funcPipeline struct {
	typ models.WorkflowType
	fn  ProcessFunc
}

// Func returns a Pipeline of the given type backed by fn.
func Func(typ models.WorkflowType, fn ProcessFunc) Pipeline {
	return funcPipeline{typ: typ, fn: fn}
}

func (p funcPipeline) Type() models.WorkflowType { return p.typ }

func (p funcPipeline) Process(ctx context.Context, input []byte) (models.Payload, error) {
	return p.fn(ctx, input)
}

// Options configures a Runner. Zero values select defaults.
type Options struct {
	// MaxInputBytes rejects larger inputs before the pipeline runs. Negative
	// disables the check.
	MaxInputBytes int
	Now           func() time.Time
	NewID         func() string
	Logger        zerolog.Logger
}

// Runner wraps pipeline calls with id, timing and status bookkeeping.
type Runner struct {
	maxInputBytes int
	now           func() time.Time
	newID         func() string
	logger        zerolog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(opts Options) *Runner {
	if opts.MaxInputBytes == 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if reflect.ValueOf(opts.Logger).IsZero() {
		opts.Logger = zerolog.Nop()
	}
	return &Runner{
		maxInputBytes: opts.MaxInputBytes,
		now:           opts.Now,
		newID:         opts.NewID,
		logger:        opts.Logger,
	}
}

// Run invokes p on input and returns the envelope describing the outcome. The
// envelope is never nil. When the run failed, the returned error is the cause
// already recorded in the envelope, so callers can classify it.
func (r *Runner) Run(ctx context.Context, p Pipeline, input []byte) (res *models.WorkflowResult, err error) {
	res = &models.WorkflowResult{
		WorkflowID:   r.newID(),
		WorkflowType: p.Type(),
		StartedAt:    r.now().UTC(),
	}
	log := r.logger.With().
		Str("workflow_id", res.WorkflowID).
		Str("workflow_type", string(res.WorkflowType)).
		Logger()
	log.Debug().Int("input_bytes", len(input)).Msg("workflow started")

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
			log.Error().Interface("panic", rec).Msg("pipeline panicked")
		}
		r.finish(res, err)
		r.logOutcome(log, res, err)
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if sizeErr := util.EnsureMaxBytes("input", input, r.maxInputBytes); sizeErr != nil {
		return res, Wrap(ErrInputTooLarge, sizeErr)
	}

	payload, err := p.Process(ctx, input)
	if err == nil && payload == nil {
		err = fmt.Errorf("%s pipeline returned no result", p.Type())
	}
	if err == nil {
		res.Result = payload
	}
	return res, err
}

// Fail builds a failed envelope for an error raised before any pipeline ran,
// such as a missing argument or an unreadable input file.
func (r *Runner) Fail(typ models.WorkflowType, cause error) *models.WorkflowResult {
	res := &models.WorkflowResult{
		WorkflowID:   r.newID(),
		WorkflowType: typ,
		StartedAt:    r.now().UTC(),
	}
	if cause == nil {
		cause = errUnknownFailure
	}
	r.finish(res, cause)
	r.logOutcome(r.logger.With().
		Str("workflow_id", res.WorkflowID).
		Str("workflow_type", string(typ)).
		Logger(), res, cause)
	return res
}

func (r *Runner) finish(res *models.WorkflowResult, err error) {
	res.CompletedAt = r.now().UTC()
	if res.CompletedAt.Before(res.StartedAt) {
		res.CompletedAt = res.StartedAt
	}

	if err != nil {
		res.Status = models.StatusFailed
		res.Result = nil
		res.Error = err.Error()
		if res.Error == "" {
			res.Error = errUnknownFailure.Error()
		}
		return
	}
	res.Status = models.StatusCompleted
	res.Error = ""
}

func (r *Runner) logOutcome(log zerolog.Logger, res *models.WorkflowResult, err error) {
	elapsed := res.CompletedAt.Sub(res.StartedAt)
	if err != nil {
		log.Warn().Err(err).Str("status", string(res.Status)).Dur("duration", elapsed).Msg("workflow failed")
		return
	}
	log.Info().Str("status", string(res.Status)).Dur("duration", elapsed).Msg("workflow completed")
}
