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

package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "a", []byte("1"), 0))

	value, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), value)

	require.NoError(t, store.Delete(ctx, "a"))

	_, found, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is not an error.
	require.NoError(t, store.Delete(ctx, "a"))
}

func TestMemoryStore_CreateConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, "agent-1", []byte("online")))

	err := store.Create(ctx, "agent-1", []byte("online"))
	assert.ErrorIs(t, err, ErrKeyExists)

	// The original value survives the conflicting create.
	value, found, err := store.Get(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("online"), value)
}

func TestMemoryStore_Keys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, store.Put(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Put(ctx, "b", []byte("2"), 0))

	keys, err = store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestNatsConfig_Validate(t *testing.T) {
	cfg := NatsConfig{}
	assert.ErrorIs(t, cfg.Validate(), errNatsURLRequired)

	cfg.URL = "nats://127.0.0.1:4222"
	assert.ErrorIs(t, cfg.Validate(), errBucketRequired)

	cfg.Bucket = "online-agents"
	assert.NoError(t, cfg.Validate())
}
