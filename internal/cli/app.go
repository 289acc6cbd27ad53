// Package cli wires configuration, logging, the workflow runner and the
// result publisher into the cobra commands behind each pipeline binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/workflow-pipelines/internal/config"
	"github.com/example/workflow-pipelines/internal/logger"
	"github.com/example/workflow-pipelines/internal/models"
	"github.com/example/workflow-pipelines/internal/output"
	"github.com/example/workflow-pipelines/internal/pipeline"
)

// ExitCodeInputError is returned when the top-level input was malformed.
const ExitCodeInputError = 1

// exitError carries a process exit status out of a command. The envelope has
// already been written when it is returned.
type exitError struct {
	code  int
	cause error
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d: %v", e.code, e.cause)
}

func (e *exitError) Unwrap() error { return e.cause }

// Streams are the process streams a command writes to.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

type commonFlags struct {
	configPath string
	pretty     bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to an optional YAML config file")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "Indent the JSON result")
}

// app bundles what a command needs once bootstrapped.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	runner    *pipeline.Runner
	publisher *output.ResultPublisher
}

// bootstrap loads configuration and builds the logger, runner and publisher.
// When configuration fails it still returns a usable app built from defaults,
// together with the error.
func bootstrap(service string, flags commonFlags, streams Streams) (*app, error) {
	cfg, cfgErr := config.Load(flags.configPath)
	if cfgErr != nil {
		cfg = config.Default()
	}

	base, err := logger.New(cfg.App.Env, cfg.App.LogLevel, streams.Err)
	if err != nil {
		fallback := logger.Fallback()
		base = &fallback
		if cfgErr == nil {
			cfgErr = fmt.Errorf("logger init: %w", err)
		}
	}
	log := base.With().Str("service", service).Logger()

	a := &app{
		cfg:    cfg,
		logger: log,
		runner: pipeline.NewRunner(pipeline.Options{
			MaxInputBytes: cfg.Limits.MaxInputBytes,
			Logger:        log.With().Str("component", "runner").Logger(),
		}),
		publisher: output.NewResultPublisher(streams.Out, flags.pretty, log.With().Str("component", "publisher").Logger()),
	}
	return a, cfgErr
}

// run executes p on input and publishes the envelope. exitOn decides which
// pipeline failures also end the process with a non-zero status.
func (a *app) run(ctx context.Context, p pipeline.Pipeline, input []byte, exitOn func(error) bool) error {
	res, err := a.runner.Run(ctx, p, input)
	if pubErr := a.publisher.Publish(res); pubErr != nil {
		return pubErr
	}
	if err != nil && exitOn(err) {
		return &exitError{code: ExitCodeInputError, cause: err}
	}
	return nil
}

// fail publishes a failed envelope for an error raised before any pipeline
// ran and ends the process with a non-zero status.
func (a *app) fail(typ models.WorkflowType, cause error) error {
	res := a.runner.Fail(typ, cause)
	if pubErr := a.publisher.Publish(res); pubErr != nil {
		return pubErr
	}
	return &exitError{code: ExitCodeInputError, cause: cause}
}

// Execute runs cmd and maps its outcome to a process exit status.
func Execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
