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

// Package directory maintains the versioned, immutable snapshot of every
// known data agent and its asset groups, refreshed in the background from a
// metadata source.
package directory

import (
	"context"
	"errors"

	"github.com/carverauto/privacyrouter/pkg/models"
)

var (
	// ErrUnsupportedOperation is returned by sources that structurally
	// cannot serve the requested operation, e.g. historical version reads
	// on a stream-backed source. Not retried.
	ErrUnsupportedOperation = errors.New("operation not supported by this metadata source")

	// ErrVersionNotFound is returned when the source can serve history but
	// does not hold the requested version.
	ErrVersionNotFound = errors.New("metadata version not found")

	// ErrNoBatches is returned when the source holds no metadata at all.
	ErrNoBatches = errors.New("metadata source holds no batches")
)

// MetadataSource is the loader's upstream contract.
type MetadataSource interface {
	// LatestVersion returns the newest available batch version.
	LatestVersion(ctx context.Context) (int64, error)

	// ReadLatest returns the newest full batch.
	ReadLatest(ctx context.Context) (*models.MetadataBatch, error)

	// ReadVersion returns the batch for a specific historical version.
	// Sources that cannot serve history return ErrUnsupportedOperation.
	ReadVersion(ctx context.Context, version int64) (*models.MetadataBatch, error)
}

// OnlineAgentStore tracks which agents have recently self-reported online.
type OnlineAgentStore interface {
	// MarkOnline records the agent as online. Racing an existing record is
	// success, not an error.
	MarkOnline(ctx context.Context, id models.AgentID) error

	// OnlineAgentIDs returns the current online set.
	OnlineAgentIDs(ctx context.Context) (map[models.AgentID]struct{}, error)
}
