package desccache

import (
	"context"
	"log/slog"
	"path/filepath"

	"picname/internal/fileutil"
	"picname/internal/logging"
	"picname/internal/services/vision"
)

// Describer is the subset of the vision client the cache wraps.
type Describer interface {
	Describe(ctx context.Context, imagePath string) (vision.Description, error)
}

// CachingDescriber serves descriptions from the cache and falls through to
// the wrapped describer on a miss. Cache failures are logged and never fail
// the call.
type CachingDescriber struct {
	inner  Describer
	cache  *Cache
	model  string
	prompt string
	logger *slog.Logger
}

// NewDescriber wraps inner with cache. model and prompt are part of the key
// so changing either invalidates earlier answers.
func NewDescriber(inner Describer, cache *Cache, model, prompt string, logger *slog.Logger) *CachingDescriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CachingDescriber{
		inner:  inner,
		cache:  cache,
		model:  model,
		prompt: prompt,
		logger: logging.NewComponentLogger(logger, "desccache"),
	}
}

// Describe implements Describer.
func (d *CachingDescriber) Describe(ctx context.Context, imagePath string) (vision.Description, error) {
	if d.cache == nil {
		return d.inner.Describe(ctx, imagePath)
	}
	name := filepath.Base(imagePath)

	hash, err := fileutil.HashFile(imagePath)
	if err != nil {
		d.logger.Debug("hash failed; bypassing cache", logging.String(logging.FieldFile, name), logging.Error(err))
		return d.inner.Describe(ctx, imagePath)
	}
	key := Key{ContentHash: hash, Model: d.model, Prompt: d.prompt}

	entry, found, err := d.cache.Lookup(ctx, key)
	if err != nil {
		logging.WarnWithContext(d.logger, "description cache lookup failed", "desccache_lookup_failed",
			logging.String(logging.FieldFile, name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "image will be sent to the model"))
	}
	if found {
		d.logger.Debug("description cache hit",
			logging.String(logging.FieldFile, name),
			logging.Int("hits", entry.Hits))
		return vision.Description{Text: entry.Description, Model: d.model, Cached: true}, nil
	}

	desc, err := d.inner.Describe(ctx, imagePath)
	if err != nil || desc.Text == "" {
		return desc, err
	}
	if storeErr := d.cache.Store(ctx, Entry{
		Key:         key,
		Description: desc.Text,
		SourceName:  name,
		Elapsed:     desc.Elapsed,
	}); storeErr != nil {
		logging.WarnWithContext(d.logger, "description cache store failed", "desccache_store_failed",
			logging.String(logging.FieldFile, name),
			logging.Error(storeErr))
	}
	return desc, nil
}
