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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/carverauto/privacyrouter/pkg/config"
	"github.com/carverauto/privacyrouter/pkg/directory"
	"github.com/carverauto/privacyrouter/pkg/kv"
	"github.com/carverauto/privacyrouter/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/privacyrouter/router.json", "Path to router config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	routerLog, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	metadataDB, err := directory.NewPostgresSource(ctx, cfg.MetadataDB, routerLog)
	if err != nil {
		return fmt.Errorf("failed to connect to metadata source: %w", err)
	}
	defer metadataDB.Close()

	source, err := directory.NewCachingSource(metadataDB, cfg.CacheDir, routerLog)
	if err != nil {
		return fmt.Errorf("failed to initialize disk cache: %w", err)
	}

	onlineKV, err := kv.NewNatsStore(ctx, cfg.OnlineAgents)
	if err != nil {
		return fmt.Errorf("failed to connect to online-agent store: %w", err)
	}

	defer func() {
		if closeErr := onlineKV.Close(); closeErr != nil {
			routerLog.Warn().Err(closeErr).Msg("failed to close online-agent store")
		}
	}()

	loader := directory.NewLoader(source, directory.NewKVOnlineStore(onlineKV), cfg.Directory, routerLog)

	routerLog.Info().Str("config", *configPath).Msg("privacy command router starting")

	// Blocks until SIGINT/SIGTERM; the previous snapshot stays served
	// through any refresh failure.
	loader.Run(ctx)

	routerLog.Info().Msg("privacy command router stopped")

	return nil
}
