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

package applicability

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/privacyrouter/pkg/directory"
	"github.com/carverauto/privacyrouter/pkg/directory/directorytest"
	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/pdms"
	"github.com/carverauto/privacyrouter/pkg/policy"
)

// End-to-end: the fixture batch flows through the loader into a snapshot,
// and commands are evaluated against the resulting records.
func loadFixtureDirectory(t *testing.T) *directory.AgentDirectory {
	t.Helper()

	loader := directory.NewLoader(directorytest.NewStaticSource(nil), nil,
		directory.LoaderConfig{}, logger.NewTestLogger())
	require.NoError(t, loader.Refresh(context.Background()))

	dir := loader.Current()
	require.NotNil(t, dir)

	return dir
}

func fixtureAssetGroup(t *testing.T, dir *directory.AgentDirectory, agent models.AgentID, group models.AssetGroupID) *pdms.AssetGroupInfo {
	t.Helper()

	record, ok := dir.TryGetAgent(agent)
	require.True(t, ok)

	info, ok := record.TryGetAssetGroup(group)
	require.True(t, ok)

	return info
}

func TestRouting_FixtureDirectory(t *testing.T) {
	dir := loadFixtureDirectory(t)
	engine := newEngine(t, Config{})

	storageTable := fixtureAssetGroup(t, dir, directorytest.StorageAgentID, directorytest.StorageTableGroupID)

	// A delete outside the legal-hold variant's data types routes.
	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)

	ok, reason := engine.IsCommandActionable(cmd, storageTable)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	// A delete wholly inside the variant's data types is suppressed.
	cmd = msaDeleteCommand(policy.DataTypeSearchRequestsAndQuery)

	ok, reason = engine.IsCommandActionable(cmd, storageTable)
	assert.False(t, ok)
	assert.Equal(t, ReasonFilteredByVariant, reason)
}

func TestRouting_FixtureTenantGating(t *testing.T) {
	dir := loadFixtureDirectory(t)
	engine := newEngine(t, Config{})

	analytics := fixtureAssetGroup(t, dir, directorytest.AnalyticsAgentID, directorytest.AnalyticsGroupID)

	tenant := uuid.MustParse(directorytest.FixtureTenantID)

	ok, reason := engine.IsCommandActionable(
		aadCommand(models.CapabilityDelete, tenant, policy.DataTypeCustomerContact), analytics)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	ok, reason = engine.IsCommandActionable(
		aadCommand(models.CapabilityDelete, uuid.New(), policy.DataTypeCustomerContact), analytics)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchAadSubjectTenantID, reason)
}

func TestRouting_FixtureDeprecatedAndTip(t *testing.T) {
	dir := loadFixtureDirectory(t)
	engine := newEngine(t, Config{})

	deprecated := fixtureAssetGroup(t, dir, directorytest.AnalyticsAgentID, directorytest.DeprecatedGroupID)

	tenant := uuid.MustParse(directorytest.FixtureTenantID)

	_, reason := engine.IsCommandActionable(
		aadCommand(models.CapabilityDelete, tenant, policy.DataTypeProductAndServiceUsage), deprecated)
	assert.Equal(t, ReasonAssetGroupInfoIsDeprecated, reason)

	// No online store was wired, so the test-in-production agent is offline.
	tip := fixtureAssetGroup(t, dir, directorytest.TipAgentID, directorytest.TipGroupID)

	_, reason = engine.IsCommandActionable(
		msaDeleteCommand(policy.DataTypeDeviceConnectivityAndConfig), tip)
	assert.Equal(t, ReasonTipAgentIsNotOnline, reason)
}

func TestRouting_FixtureAccountClose(t *testing.T) {
	dir := loadFixtureDirectory(t)
	engine := newEngine(t, Config{})

	blob := fixtureAssetGroup(t, dir, directorytest.StorageAgentID, directorytest.StorageBlobGroupID)

	cmd := &models.PrivacyCommand{
		CommandID:  uuid.New(),
		Capability: models.CapabilityAccountClose,
		Subject:    models.Subject{Kind: models.SubjectMsa},
	}

	ok, reason := engine.IsCommandActionable(cmd, blob)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestRouting_FixtureAuthMatching(t *testing.T) {
	dir := loadFixtureDirectory(t)

	record, ok := dir.TryGetAgent(directorytest.StorageAgentID)
	require.True(t, ok)

	assert.True(t, record.MatchesMsaSiteID(296170))
	assert.False(t, record.MatchesMsaSiteID(12345))

	analytics, ok := dir.TryGetAgent(directorytest.AnalyticsAgentID)
	require.True(t, ok)

	assert.True(t, analytics.MatchesAadAppID(uuid.MustParse("9c1d3a22-4b69-4e54-9a1e-0cf1e3b0cf3f")))
}
