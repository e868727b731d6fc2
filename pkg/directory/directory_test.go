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
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
)

func buildDirectoryWithAuth(t *testing.T, overrides map[models.AgentID]AuthOverride, docs ...models.AssetGroupDocument) *AgentDirectory {
	t.Helper()

	source := newFakeSource()
	source.add(testBatch(1, docs...))

	loader := NewLoader(source, nil, LoaderConfig{AuthOverrides: overrides}, logger.NewTestLogger())
	require.NoError(t, loader.Refresh(context.Background()))

	return loader.Current()
}

func TestAgentRecord_MatchesMsaSiteID(t *testing.T) {
	siteID := int64(296170)

	doc := assetGroupDoc("agent-a", "ag-1", "AssetType=AzureTable;AccountName=a")
	doc.MsaSiteID = &siteID

	dir := buildDirectoryWithAuth(t, nil, doc,
		assetGroupDoc("agent-a", "ag-2", "AssetType=AzureTable;AccountName=b"))

	record, ok := dir.TryGetAgent("agent-a")
	require.True(t, ok)

	assert.True(t, record.MatchesMsaSiteID(siteID))
	assert.False(t, record.MatchesMsaSiteID(999))

	// Memoized answers are stable.
	assert.True(t, record.MatchesMsaSiteID(siteID))
	assert.False(t, record.MatchesMsaSiteID(999))
}

func TestAgentRecord_MatchesAadAppID(t *testing.T) {
	appID := uuid.New()

	doc := assetGroupDoc("agent-a", "ag-1", "AssetType=AzureTable;AccountName=a")
	doc.AadAppID = appID.String()

	dir := buildDirectoryWithAuth(t, nil, doc)

	record, ok := dir.TryGetAgent("agent-a")
	require.True(t, ok)

	assert.True(t, record.MatchesAadAppID(appID))
	assert.False(t, record.MatchesAadAppID(uuid.New()))
}

func TestAgentRecord_AuthOverride(t *testing.T) {
	overrideApp := uuid.New()
	overrides := map[models.AgentID]AuthOverride{
		"agent-a": {
			MsaSiteIDs: []int64{424242},
			AadAppIDs:  []uuid.UUID{overrideApp},
		},
	}

	dir := buildDirectoryWithAuth(t, overrides,
		assetGroupDoc("agent-a", "ag-1", "AssetType=AzureTable;AccountName=a"))

	record, ok := dir.TryGetAgent("agent-a")
	require.True(t, ok)

	// The override matches even though no asset group declares the ids.
	assert.True(t, record.MatchesMsaSiteID(424242))
	assert.True(t, record.MatchesAadAppID(overrideApp))
}

// Concurrent first-time lookups may race the memoization write; both must
// land on the same deterministic answer.
func TestAgentRecord_ConcurrentAuthLookups(t *testing.T) {
	siteID := int64(296170)

	doc := assetGroupDoc("agent-a", "ag-1", "AssetType=AzureTable;AccountName=a")
	doc.MsaSiteID = &siteID

	dir := buildDirectoryWithAuth(t, nil, doc)

	record, ok := dir.TryGetAgent("agent-a")
	require.True(t, ok)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.True(t, record.MatchesMsaSiteID(siteID))
			assert.False(t, record.MatchesMsaSiteID(1))
		}()
	}

	wg.Wait()
}
