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
	"errors"
	"fmt"

	"github.com/carverauto/privacyrouter/pkg/kv"
	"github.com/carverauto/privacyrouter/pkg/models"
)

// KVOnlineStore tracks online agents in a KV bucket, one key per agent id
// with no payload. A TTL on the bucket ages dead agents out of the set.
type KVOnlineStore struct {
	store kv.KVStore
}

// NewKVOnlineStore wraps a KV store as an OnlineAgentStore.
func NewKVOnlineStore(store kv.KVStore) *KVOnlineStore {
	return &KVOnlineStore{store: store}
}

// MarkOnline inserts the agent's liveness key. A concurrent insert that
// finds the key already present is success.
func (s *KVOnlineStore) MarkOnline(ctx context.Context, id models.AgentID) error {
	err := s.store.Create(ctx, string(id), nil)
	if errors.Is(err, kv.ErrKeyExists) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("mark agent %s online: %w", id, err)
	}

	return nil
}

// OnlineAgentIDs returns the set of agents with a live key.
func (s *KVOnlineStore) OnlineAgentIDs(ctx context.Context) (map[models.AgentID]struct{}, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list online agents: %w", err)
	}

	ids := make(map[models.AgentID]struct{}, len(keys))
	for _, key := range keys {
		ids[models.AgentID(key)] = struct{}{}
	}

	return ids, nil
}

var _ OnlineAgentStore = (*KVOnlineStore)(nil)
