// Package words generates the payloads typed into the search box during a
// work unit.
package words

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/internal/ctxkeys"
)

var (
	// ErrInvalidCount is returned for a negative request size.
	ErrInvalidCount = errors.New("words: negative count")
	// ErrInvalidBounds is returned when word length bounds are unusable.
	ErrInvalidBounds = errors.New("words: invalid length bounds")
	// ErrEmptyDictionary is returned when no dictionary entry survives filtering.
	ErrEmptyDictionary = errors.New("words: dictionary is empty after filtering")
	// ErrDictionaryUnavailable is returned while a failed download is backing off.
	ErrDictionaryUnavailable = errors.New("words: dictionary unavailable")
)

// Generator produces n payload strings. n == 0 yields an empty slice.
type Generator interface {
	Generate(ctx context.Context, n int) ([]string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, n int) ([]string, error)

func (f GeneratorFunc) Generate(ctx context.Context, n int) ([]string, error) {
	return f(ctx, n)
}

// Fallback tries Primary and falls back to Backup on any error.
type Fallback struct {
	primary Generator
	backup  Generator
	logger  *zap.Logger
}

// NewFallback composes two generators.
func NewFallback(primary, backup Generator, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		primary: primary,
		backup:  backup,
		logger:  logger.With(zap.String("component", "words")),
	}
}

func (f *Fallback) Generate(ctx context.Context, n int) ([]string, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	if n == 0 {
		return []string{}, nil
	}

	if f.primary != nil {
		out, err := f.primary.Generate(ctx, n)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.logger.Warn("primary word source failed, using backup", append(ctxkeys.Fields(ctx), zap.Error(err))...)
	}
	if f.backup == nil {
		return nil, fmt.Errorf("words: no backup generator configured")
	}
	return f.backup.Generate(ctx, n)
}
