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
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
)

// PostgresConfig describes the metadata database connection.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`

	MaxConnections int32 `json:"max_connections,omitempty"`
}

// PostgresSource reads versioned metadata batches from the
// agent_metadata_batches table. Each row holds the full batch: the document
// arrays are stored as JSONB.
type PostgresSource struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresSource dials the metadata database and returns a source that
// supports historical version reads.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig, log logger.Logger) (*PostgresSource, error) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)
	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("metadata db: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("metadata db: failed to initialize pool: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("connected to metadata database")

	return &PostgresSource{
		pool: pool,
		log:  log.WithComponent("postgres"),
	}, nil
}

func (p *PostgresSource) LatestVersion(ctx context.Context) (int64, error) {
	var version *int64

	err := p.pool.QueryRow(ctx,
		`SELECT MAX(version) FROM agent_metadata_batches`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("query latest metadata version: %w", err)
	}

	if version == nil {
		return 0, ErrNoBatches
	}

	return *version, nil
}

func (p *PostgresSource) ReadLatest(ctx context.Context) (*models.MetadataBatch, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT version, asset_groups, variants, asset_group_stream, variant_stream, created_at
		 FROM agent_metadata_batches
		 ORDER BY version DESC
		 LIMIT 1`)

	batch, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoBatches
	}

	return batch, err
}

func (p *PostgresSource) ReadVersion(ctx context.Context, version int64) (*models.MetadataBatch, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT version, asset_groups, variants, asset_group_stream, variant_stream, created_at
		 FROM agent_metadata_batches
		 WHERE version = $1`, version)

	batch, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("version %d: %w", version, ErrVersionNotFound)
	}

	return batch, err
}

// Close releases the connection pool.
func (p *PostgresSource) Close() {
	p.pool.Close()
}

func scanBatch(row pgx.Row) (*models.MetadataBatch, error) {
	var (
		batch       models.MetadataBatch
		assetGroups []byte
		variants    []byte
		createdAt   time.Time
	)

	err := row.Scan(&batch.Version, &assetGroups, &variants,
		&batch.AssetGroupInfoStream, &batch.VariantInfoStream, &createdAt)
	if err != nil {
		return nil, err
	}

	batch.CreatedTime = createdAt.UTC()

	if err := json.Unmarshal(assetGroups, &batch.AssetGroupInfos); err != nil {
		return nil, fmt.Errorf("decode asset group documents for version %d: %w", batch.Version, err)
	}

	if err := json.Unmarshal(variants, &batch.VariantInfos); err != nil {
		return nil, fmt.Errorf("decode variant documents for version %d: %w", batch.Version, err)
	}

	return &batch, nil
}

var _ MetadataSource = (*PostgresSource)(nil)
