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

// Package config loads the router daemon configuration from JSON.
package config

import (
	"context"
	"errors"

	"github.com/carverauto/privacyrouter/pkg/applicability"
	"github.com/carverauto/privacyrouter/pkg/directory"
	"github.com/carverauto/privacyrouter/pkg/kv"
	"github.com/carverauto/privacyrouter/pkg/logger"
)

const defaultCacheDir = "/var/lib/privacyrouter/cache"

var (
	errMetadataDBHostRequired = errors.New("metadata_db.host is required")
	errMetadataDBNameRequired = errors.New("metadata_db.database is required")
)

// Config is the complete router daemon configuration.
type Config struct {
	// Logging configures the zerolog sink.
	Logging logger.Config `json:"logging,omitempty"`

	// Engine carries the applicability kill switches and flights.
	Engine applicability.Config `json:"engine,omitempty"`

	// Directory tunes the snapshot loader.
	Directory directory.LoaderConfig `json:"directory,omitempty"`

	// MetadataDB is the versioned metadata source.
	MetadataDB directory.PostgresConfig `json:"metadata_db"`

	// OnlineAgents is the JetStream bucket tracking agent liveness.
	OnlineAgents kv.NatsConfig `json:"online_agents"`

	// CacheDir holds the on-disk metadata batch fallback.
	CacheDir string `json:"cache_dir,omitempty"`
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.MetadataDB.Host == "" {
		return errMetadataDBHostRequired
	}

	if c.MetadataDB.Database == "" {
		return errMetadataDBNameRequired
	}

	if err := c.OnlineAgents.Validate(); err != nil {
		return err
	}

	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}

	return nil
}

// Load reads and validates the configuration at path.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config

	loader := &FileConfigLoader{}
	if err := loader.Load(ctx, path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
