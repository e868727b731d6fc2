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

// Package kv provides the key-value store abstraction backing the
// online-agent registry.
package kv

import (
	"context"
	"time"
)

// KVStore is the key-value store interface used for agent liveness state.
type KVStore interface {
	// Get retrieves the value associated with the given key. The boolean
	// reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores a value under the given key with an optional TTL. A zero
	// ttl means the value persists until deleted (backend permitting).
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Create stores a value only if the key does not already exist.
	// Returns ErrKeyExists when it does.
	Create(ctx context.Context, key string, value []byte) error

	// Delete removes the key and its associated value from the store.
	Delete(ctx context.Context, key string) error

	// Keys lists every key currently present in the store. An empty store
	// yields an empty slice, not an error.
	Keys(ctx context.Context) ([]string, error)

	// Close shuts down the store, releasing any connections.
	Close() error
}
