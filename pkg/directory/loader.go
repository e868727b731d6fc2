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
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/pdms"
)

const (
	defaultRefreshMin = 3 * time.Minute
	defaultRefreshMax = 8 * time.Minute
)

// LoaderConfig tunes the background refresh and the parse behavior of the
// directory builds.
type LoaderConfig struct {
	// RefreshMin and RefreshMax bound the jittered refresh interval. Zero
	// values fall back to [3m, 8m).
	RefreshMin time.Duration `json:"refresh_min,omitempty"`
	RefreshMax time.Duration `json:"refresh_max,omitempty"`

	// CloudInstanceFallbackDisabled turns off the substitution of All and
	// Public for asset groups that declare no cloud instances.
	CloudInstanceFallbackDisabled bool `json:"cloud_instance_fallback_disabled,omitempty"`

	// AuthOverrides supplements authentication material for agents that
	// are migrating credentials.
	AuthOverrides map[models.AgentID]AuthOverride `json:"auth_overrides,omitempty"`
}

// Loader owns the current directory snapshot and the version cache. All
// reads are lock-free; writes happen only on refresh.
type Loader struct {
	source MetadataSource
	online OnlineAgentStore
	cfg    LoaderConfig
	log    logger.Logger

	current atomic.Pointer[AgentDirectory]

	// versions is the append-only version cache: int64 -> *AgentDirectory.
	// Entries are never mutated or evicted.
	versions sync.Map
}

// NewLoader builds a Loader. It performs no I/O; call Refresh or Run to
// populate the first snapshot.
func NewLoader(source MetadataSource, online OnlineAgentStore, cfg LoaderConfig, log logger.Logger) *Loader {
	if cfg.RefreshMin <= 0 {
		cfg.RefreshMin = defaultRefreshMin
	}

	if cfg.RefreshMax <= cfg.RefreshMin {
		cfg.RefreshMax = cfg.RefreshMin + (defaultRefreshMax - defaultRefreshMin)
	}

	return &Loader{
		source: source,
		online: online,
		cfg:    cfg,
		log:    log.WithComponent("directory"),
	}
}

// Current returns the latest published snapshot, or nil before the first
// successful refresh. Never blocks.
func (l *Loader) Current() *AgentDirectory {
	return l.current.Load()
}

// Version returns the snapshot for a specific historical version, building
// and caching it on first access. The current snapshot is not repointed.
func (l *Loader) Version(ctx context.Context, version int64) (*AgentDirectory, error) {
	if cached, ok := l.versions.Load(version); ok {
		return cached.(*AgentDirectory), nil
	}

	batch, err := l.source.ReadVersion(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("read version %d: %w", version, err)
	}

	dir := l.build(ctx, batch)
	cached, _ := l.versions.LoadOrStore(version, dir)

	return cached.(*AgentDirectory), nil
}

// Refresh fetches the latest version and publishes a new snapshot. When the
// latest version is already cached, the current pointer is repointed without
// refetching or reparsing.
func (l *Loader) Refresh(ctx context.Context) error {
	latest, err := l.source.LatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest version: %w", err)
	}

	if cached, ok := l.versions.Load(latest); ok {
		l.current.Store(cached.(*AgentDirectory))

		return nil
	}

	batch, err := l.source.ReadLatest(ctx)
	if err != nil {
		return fmt.Errorf("read latest batch: %w", err)
	}

	built := l.build(ctx, batch)
	cached, _ := l.versions.LoadOrStore(built.version, built)
	dir := cached.(*AgentDirectory)

	l.current.Store(dir)

	l.log.Info().
		Int64("version", dir.version).
		Int("agents", len(dir.agents)).
		Int("asset_groups", len(dir.assetGroups)).
		Msg("published directory snapshot")

	return nil
}

// Run refreshes immediately, then loops on a jittered interval until the
// context is cancelled. Refresh failures are logged and swallowed; the
// previous snapshot stays authoritative.
func (l *Loader) Run(ctx context.Context) {
	if err := l.Refresh(ctx); err != nil {
		l.log.Error().Err(err).Msg("initial directory refresh failed")
	}

	for {
		timer := time.NewTimer(l.jitteredInterval())

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C:
		}

		if err := l.Refresh(ctx); err != nil {
			l.log.Error().Err(err).Msg("directory refresh failed")
		}
	}
}

func (l *Loader) jitteredInterval() time.Duration {
	span := l.cfg.RefreshMax - l.cfg.RefreshMin

	return l.cfg.RefreshMin + time.Duration(rand.Int63n(int64(span)))
}

// build parses a raw batch tolerantly into an immutable snapshot. Bad
// records are dropped with a warning; duplicate asset group ids resolve in
// favor of the non-deprecated copy.
func (l *Loader) build(ctx context.Context, batch *models.MetadataBatch) *AgentDirectory {
	parser := pdms.NewParser(l.log, l.cfg.CloudInstanceFallbackDisabled)

	associator, err := pdms.NewVariantAssociator(parser, batch.VariantInfos, true, l.log)
	if err != nil {
		// Unreachable in tolerant mode, but keep the snapshot usable.
		l.log.Error().Err(err).Msg("variant associator build failed, continuing without variants")

		associator, _ = pdms.NewVariantAssociator(parser, nil, true, l.log)
	}

	byID := make(map[models.AssetGroupID]*pdms.AssetGroupInfo, len(batch.AssetGroupInfos))
	order := make([]models.AssetGroupID, 0, len(batch.AssetGroupInfos))

	for _, doc := range batch.AssetGroupInfos {
		info, err := pdms.NewAssetGroupInfo(parser, doc, true)
		if err != nil {
			l.log.Warn().
				Str("asset_group_id", string(doc.AssetGroupID)).
				Err(err).
				Msg("dropping unparseable asset group")

			continue
		}

		existing, dup := byID[info.AssetGroupID]
		if !dup {
			byID[info.AssetGroupID] = info
			order = append(order, info.AssetGroupID)

			continue
		}

		// Duplicate id across the batch: keep whichever copy is still
		// serving traffic.
		if existing.IsDeprecated && !info.IsDeprecated {
			byID[info.AssetGroupID] = info
		}

		l.log.Warn().
			Str("asset_group_id", string(info.AssetGroupID)).
			Msg("duplicate asset group id in batch")
	}

	onlineIDs := l.onlineSet(ctx)

	dir := &AgentDirectory{
		version:              batch.Version,
		assetGroupInfoStream: batch.AssetGroupInfoStream,
		variantInfoStream:    batch.VariantInfoStream,
		createdTime:          batch.CreatedTime,
		agents:               make(map[models.AgentID]*AgentRecord),
		assetGroups:          make([]*pdms.AssetGroupInfo, 0, len(order)),
	}

	for _, id := range order {
		info := byID[id]
		associator.Associate(info)

		record, ok := dir.agents[info.AgentID]
		if !ok {
			_, online := onlineIDs[info.AgentID]

			record = &AgentRecord{
				id:          info.AgentID,
				online:      online,
				assetGroups: make(map[models.AssetGroupID]*pdms.AssetGroupInfo),
				override:    l.cfg.AuthOverrides[info.AgentID],
			}
			dir.agents[info.AgentID] = record
		}

		info.Agent = record
		record.assetGroups[info.AssetGroupID] = info
		record.ordered = append(record.ordered, info)
		dir.assetGroups = append(dir.assetGroups, info)
	}

	return dir
}

// onlineSet reads the online-agent store; an unreachable store degrades to
// an empty set rather than failing the build.
func (l *Loader) onlineSet(ctx context.Context) map[models.AgentID]struct{} {
	if l.online == nil {
		return nil
	}

	ids, err := l.online.OnlineAgentIDs(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("online-agent set unavailable, treating all agents as offline")

		return nil
	}

	return ids
}
