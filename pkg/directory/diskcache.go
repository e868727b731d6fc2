/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
)

const (
	batchFilePrefix = "metadata-v"
	batchFileSuffix = ".json"
)

func batchFileName(version int64) string {
	return batchFilePrefix + strconv.FormatInt(version, 10) + batchFileSuffix
}

func parseBatchFileName(name string) (int64, bool) {
	if !strings.HasPrefix(name, batchFilePrefix) || !strings.HasSuffix(name, batchFileSuffix) {
		return 0, false
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(name, batchFilePrefix), batchFileSuffix)

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 0 {
		return 0, false
	}

	return version, true
}

// FileSource serves metadata batches from a directory of one-file-per-version
// JSON dumps, as written by CachingSource. It holds no live connection.
type FileSource struct {
	dir string
}

// NewFileSource returns a source over the given cache directory.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (f *FileSource) LatestVersion(_ context.Context) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("scan cache dir %s: %w", f.dir, err)
	}

	latest := int64(-1)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if version, ok := parseBatchFileName(entry.Name()); ok && version > latest {
			latest = version
		}
	}

	if latest < 0 {
		return 0, ErrNoBatches
	}

	return latest, nil
}

func (f *FileSource) ReadLatest(ctx context.Context) (*models.MetadataBatch, error) {
	latest, err := f.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}

	return f.readFile(latest)
}

// ReadVersion serves a historical version only if its file is present.
func (f *FileSource) ReadVersion(_ context.Context, version int64) (*models.MetadataBatch, error) {
	if _, err := os.Stat(filepath.Join(f.dir, batchFileName(version))); err != nil {
		return nil, fmt.Errorf("version %d not cached on disk: %w", version, ErrUnsupportedOperation)
	}

	return f.readFile(version)
}

func (f *FileSource) readFile(version int64) (*models.MetadataBatch, error) {
	path := filepath.Join(f.dir, batchFileName(version))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cached batch %s: %w", path, err)
	}

	var batch models.MetadataBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode cached batch %s: %w", path, err)
	}

	return &batch, nil
}

var _ MetadataSource = (*FileSource)(nil)

// CachingSource wraps a live source and persists every successfully read
// batch to disk. When the live source is unreachable, the newest on-disk
// batch is served instead, preserving availability over freshness.
type CachingSource struct {
	live     MetadataSource
	fallback *FileSource
	dir      string
	log      logger.Logger
}

// NewCachingSource wraps live with an on-disk cache rooted at dir. The
// directory is created if missing.
func NewCachingSource(live MetadataSource, dir string, log logger.Logger) (*CachingSource, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	return &CachingSource{
		live:     live,
		fallback: NewFileSource(dir),
		dir:      dir,
		log:      log.WithComponent("diskcache"),
	}, nil
}

func (c *CachingSource) LatestVersion(ctx context.Context) (int64, error) {
	version, err := c.live.LatestVersion(ctx)
	if err == nil {
		return version, nil
	}

	c.log.Warn().Err(err).Msg("live metadata source unreachable, falling back to disk cache")

	return c.fallback.LatestVersion(ctx)
}

func (c *CachingSource) ReadLatest(ctx context.Context) (*models.MetadataBatch, error) {
	batch, err := c.live.ReadLatest(ctx)
	if err == nil {
		c.persist(batch)

		return batch, nil
	}

	c.log.Warn().Err(err).Msg("live metadata source unreachable, serving newest cached batch")

	return c.fallback.ReadLatest(ctx)
}

func (c *CachingSource) ReadVersion(ctx context.Context, version int64) (*models.MetadataBatch, error) {
	batch, err := c.live.ReadVersion(ctx, version)
	if err == nil {
		c.persist(batch)

		return batch, nil
	}

	if cached, fallbackErr := c.fallback.ReadVersion(ctx, version); fallbackErr == nil {
		return cached, nil
	}

	return nil, err
}

// persist writes the batch to its version file. Cache write failures are
// logged, never surfaced: the live read already succeeded.
func (c *CachingSource) persist(batch *models.MetadataBatch) {
	data, err := json.Marshal(batch)
	if err != nil {
		c.log.Warn().Err(err).Int64("version", batch.Version).Msg("failed to encode batch for disk cache")

		return
	}

	path := filepath.Join(c.dir, batchFileName(batch.Version))

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to write batch to disk cache")

		return
	}

	if err := os.Rename(tmp, path); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to publish batch cache file")
	}
}

var _ MetadataSource = (*CachingSource)(nil)
