// Package cleaner classifies each field of a mapping by name and value type and
// applies the matching normalization and validation rule.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/workflow-pipelines/internal/models"
	"github.com/example/workflow-pipelines/internal/pipeline"
	"github.com/example/workflow-pipelines/internal/util"
)

// DefaultMaxDepth bounds how many nested mappings Clean descends into.
const DefaultMaxDepth = 64

// Cleaner implements pipeline.Pipeline for the data_clean workflow.
type Cleaner struct {
	maxDepth int
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customises a Cleaner.
type Option func(*Cleaner)

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(depth int) Option {
	return func(c *Cleaner) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithClock overrides the clock used for CleanedData.CleanedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Cleaner.
func New(logger zerolog.Logger, opts ...Option) *Cleaner {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	c := &Cleaner{
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type implements pipeline.Pipeline.
func (c *Cleaner) Type() models.WorkflowType {
	return models.WorkflowDataClean
}

// Process implements pipeline.Pipeline. input must be a JSON object.
func (c *Cleaner) Process(ctx context.Context, input []byte) (models.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := models.ParseObject(input)
	if err != nil {
		if errors.Is(err, models.ErrNotObject) {
			return nil, pipeline.Wrap(pipeline.ErrInvalidInput, err)
		}
		return nil, pipeline.ErrInvalidJSON
	}
	return c.CleanData(data)
}

// CleanData cleans data and packages the outcome as a CleanedData payload.
func (c *Cleaner) CleanData(data *models.Map) (*models.CleanedData, error) {
	cleaned, errs, err := c.Clean(data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("fields", data.Len()).
		Int("validation_errors", len(errs)).
		Msg("data cleaned")

	return &models.CleanedData{
		OriginalData:     data,
		CleanedData:      cleaned,
		ValidationErrors: errs,
		CleanedAt:        c.now().UTC(),
	}, nil
}

// Clean returns a cleaned copy of data together with the validation errors
// found, in field order. data is not modified. The returned error is non-nil
// only when nesting exceeds the configured depth.
func (c *Cleaner) Clean(data *models.Map) (*models.Map, []string, error) {
	return c.clean(data, 1)
}

func (c *Cleaner) clean(data *models.Map, depth int) (*models.Map, []string, error) {
	if depth > c.maxDepth {
		return nil, nil, fmt.Errorf("%w: limit is %d", pipeline.ErrDepthExceeded, c.maxDepth)
	}

	cleaned := models.NewMap()
	errs := []string{}

	var failure error
	data.Range(func(key string, value models.Value) bool {
		lowerKey := strings.ToLower(key)
		text, isText := value.AsString()

		switch {
		case value.IsNull():
			errs = append(errs, fmt.Sprintf("Field '%s' is null", key))

		case isText && strings.Contains(lowerKey, "email"):
			if !util.IsEmail(text) {
				errs = append(errs, "Invalid email format: "+key)
			}
			cleaned.Set(key, models.StringValue(util.NormalizeEmail(text)))

		case isText && strings.Contains(lowerKey, "phone"):
			if !util.IsPhone(text) {
				errs = append(errs, "Invalid phone format: "+key)
			}
			cleaned.Set(key, models.StringValue(util.NormalizePhone(text)))

		case isText:
			cleaned.Set(key, models.StringValue(util.CleanText(text)))

		case value.IsNumber():
			cleaned.Set(key, value)

		case value.Kind() == models.KindTime:
			ts, _ := value.AsTime()
			cleaned.Set(key, models.StringValue(models.FormatTimestamp(ts)))

		case value.Kind() == models.KindMap:
			nested, _ := value.AsMap()
			nestedCleaned, nestedErrs, err := c.clean(nested, depth+1)
			if err != nil {
				failure = fmt.Errorf("%s: %w", key, err)
				return false
			}
			// Nested errors stay inside the pair; they are not merged upward.
			cleaned.Set(key, models.PairValue(nestedCleaned, nestedErrs))

		case value.Kind() == models.KindList:
			items, _ := value.AsList()
			cleaned.Set(key, models.ListValue(cleanList(items)...))

		default:
			cleaned.Set(key, value)
		}
		return true
	})
	if failure != nil {
		return nil, nil, failure
	}

	return cleaned, errs, nil
}

func cleanList(items []models.Value) []models.Value {
	out := make([]models.Value, 0, len(items))
	for _, item := range items {
		if text, ok := item.AsString(); ok {
			out = append(out, models.StringValue(util.CleanText(text)))
			continue
		}
		out = append(out, item)
	}
	return out
}
