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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/pdms"
	"github.com/carverauto/privacyrouter/pkg/policy"
)

const (
	testAgentID      = models.AgentID("14b1e8de19ad41329344abfe28f37d04")
	testAssetGroupID = models.AssetGroupID("7a6a494cd2e047a18f1863368a19b79f")
	testPortalSource = "TestPortal"
)

type fakeAgent struct {
	online bool
}

func (f *fakeAgent) IsOnline() bool { return f.online }

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()

	return New(cfg, logger.NewTestLogger())
}

func baseDocument() models.AssetGroupDocument {
	return models.AssetGroupDocument{
		AgentID:             testAgentID,
		AssetGroupID:        testAssetGroupID,
		AssetGroupQualifier: "AssetType=AzureTable;AccountName=ustprocessor;TableName=commands",
		Capabilities:        []string{"Delete", "Export"},
		DataTypes:           []string{"BrowsingHistory", "CustomerContact"},
		SubjectTypes:        []string{"MSAUser", "AADUser"},
		AgentReadiness:      "ProdReady",
	}
}

func buildAssetGroup(t *testing.T, doc models.AssetGroupDocument) *pdms.AssetGroupInfo {
	t.Helper()

	p := pdms.NewParser(logger.NewTestLogger(), false)

	info, err := pdms.NewAssetGroupInfo(p, doc, true)
	require.NoError(t, err)

	return info
}

func msaDeleteCommand(dataTypes ...policy.DataTypeID) *models.PrivacyCommand {
	return &models.PrivacyCommand{
		CommandID:  uuid.New(),
		Capability: models.CapabilityDelete,
		Subject:    models.Subject{Kind: models.SubjectMsa},
		DataTypes:  dataTypes,
		Timestamp:  time.Now().UTC(),
	}
}

func aadCommand(capability models.CommandCapability, tenant policy.TenantID, dataTypes ...policy.DataTypeID) *models.PrivacyCommand {
	return &models.PrivacyCommand{
		CommandID:  uuid.New(),
		Capability: capability,
		Subject:    models.Subject{Kind: models.SubjectAad, TenantID: tenant},
		DataTypes:  dataTypes,
		Timestamp:  time.Now().UTC(),
	}
}

func TestIsCommandActionable_HappyPath(t *testing.T) {
	e := newEngine(t, Config{})
	ag := buildAssetGroup(t, baseDocument())

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
	assert.Equal(t, []policy.DataTypeID{policy.DataTypeBrowsingHistory}, cmd.DataTypes)
}

func TestIsCommandActionable_SyntheticTest(t *testing.T) {
	e := newEngine(t, Config{})
	ag := buildAssetGroup(t, baseDocument())

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.IsSyntheticTest = true

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonSyntheticTestCommand, reason)
}

func TestIsCommandActionable_BlockLists(t *testing.T) {
	ag := buildAssetGroup(t, baseDocument())
	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)

	e := newEngine(t, Config{BlockedAgents: []models.AgentID{testAgentID}})

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonAgentIsBlocked, reason)

	e = newEngine(t, Config{BlockedAssetGroups: []models.AssetGroupID{testAssetGroupID}})

	ok, reason = e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonAssetGroupIsBlocked, reason)
}

// A blocked agent is reported before validity: ordering matters for the
// reason codes operators see.
func TestIsCommandActionable_BlockedBeatsInvalid(t *testing.T) {
	doc := baseDocument()
	doc.Capabilities = nil
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{BlockedAgents: []models.AgentID{testAgentID}})

	_, reason := e.IsCommandActionable(msaDeleteCommand(policy.DataTypeBrowsingHistory), ag)
	assert.Equal(t, ReasonAgentIsBlocked, reason)
}

func TestIsCommandActionable_InvalidAssetGroup(t *testing.T) {
	doc := baseDocument()
	doc.DataTypes = nil
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	ok, reason := e.IsCommandActionable(msaDeleteCommand(policy.DataTypeBrowsingHistory), ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonAssetGroupInfoIsInvalid, reason)
}

func TestIsCommandActionable_Deprecated(t *testing.T) {
	doc := baseDocument()
	doc.IsDeprecated = true
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	ok, reason := e.IsCommandActionable(msaDeleteCommand(policy.DataTypeBrowsingHistory), ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonAssetGroupInfoIsDeprecated, reason)
}

func TestIsCommandActionable_CapabilityMismatch(t *testing.T) {
	e := newEngine(t, Config{})
	ag := buildAssetGroup(t, baseDocument())

	cmd := msaDeleteCommand()
	cmd.Capability = models.CapabilityAccountClose

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchAssetGroupCapability, reason)
}

func TestIsCommandActionable_SubjectMismatch(t *testing.T) {
	doc := baseDocument()
	doc.SubjectTypes = []string{"AADUser"}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	ok, reason := e.IsCommandActionable(msaDeleteCommand(policy.DataTypeBrowsingHistory), ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchAssetGroupSubjects, reason)
}

func TestIsCommandActionable_AadTenantAllowList(t *testing.T) {
	allowed := uuid.New()
	other := uuid.New()

	doc := baseDocument()
	doc.TenantIDs = []string{allowed.String()}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	ok, reason := e.IsCommandActionable(aadCommand(models.CapabilityDelete, allowed, policy.DataTypeBrowsingHistory), ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	ok, reason = e.IsCommandActionable(aadCommand(models.CapabilityDelete, other, policy.DataTypeBrowsingHistory), ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchAadSubjectTenantID, reason)
}

func TestIsCommandActionable_Aad2HomeTenant(t *testing.T) {
	home := uuid.New()

	doc := baseDocument()
	doc.SubjectTypes = []string{"AADUser2"}
	doc.TenantIDs = []string{home.String()}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := &models.PrivacyCommand{
		CommandID:  uuid.New(),
		Capability: models.CapabilityDelete,
		Subject: models.Subject{
			Kind:         models.SubjectAad2,
			TenantID:     home,
			HomeTenantID: home,
			TenantIDType: models.TenantIDTypeHome,
		},
		DataTypes: []policy.DataTypeID{policy.DataTypeBrowsingHistory},
	}

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	// A home-anchored command whose acting tenant disagrees with its home
	// tenant is rejected even when both are allow-listed.
	cmd.Subject.TenantID = uuid.New()

	ok, reason = e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchAadSubjectTenantID, reason)
}

func TestIsCommandActionable_Aad2ResourceTenant(t *testing.T) {
	resource := uuid.New()

	doc := baseDocument()
	doc.SubjectTypes = []string{"AADUser2"}
	doc.TenantIDs = []string{resource.String()}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := &models.PrivacyCommand{
		CommandID:  uuid.New(),
		Capability: models.CapabilityDelete,
		Subject: models.Subject{
			Kind:         models.SubjectAad2,
			TenantID:     resource,
			HomeTenantID: uuid.New(),
			TenantIDType: models.TenantIDTypeResource,
		},
		DataTypes: []policy.DataTypeID{policy.DataTypeBrowsingHistory},
	}

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestIsCommandActionable_DataTypeMismatch(t *testing.T) {
	e := newEngine(t, Config{})
	ag := buildAssetGroup(t, baseDocument())

	ok, reason := e.IsCommandActionable(msaDeleteCommand(policy.DataTypeCredentials), ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchAssetGroupDataTypes, reason)
}

func TestIsCommandActionable_DataTypeNarrowing(t *testing.T) {
	e := newEngine(t, Config{})
	ag := buildAssetGroup(t, baseDocument())

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory, policy.DataTypeCredentials)

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
	assert.Equal(t, []policy.DataTypeID{policy.DataTypeBrowsingHistory}, cmd.DataTypes)
}

func TestIsCommandActionable_AnyDataTypeWildcard(t *testing.T) {
	doc := baseDocument()
	doc.DataTypes = []string{"Any"}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := msaDeleteCommand(policy.DataTypeCredentials, policy.DataTypeEnvironmentalSensor)

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
	// Wildcard groups receive the command untouched.
	assert.Len(t, cmd.DataTypes, 2)
}

func TestIsCommandActionable_AccountCloseIgnoresDataTypes(t *testing.T) {
	doc := baseDocument()
	doc.Capabilities = []string{"AccountClose"}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := &models.PrivacyCommand{
		CommandID:  uuid.New(),
		Capability: models.CapabilityAccountClose,
		Subject:    models.Subject{Kind: models.SubjectMsa},
	}

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestIsCommandActionable_CloudInstance(t *testing.T) {
	doc := baseDocument()
	doc.SupportedCloudInstances = []string{"US.Azure.Fairfax"}
	doc.DeploymentLocation = "US.Azure.Fairfax"
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CloudInstance = "US.Azure.Fairfax"

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	cmd = msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CloudInstance = "Public"

	ok, reason = e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchSupportedCloudInstances, reason)

	// A command that never declared its cloud instance routes anywhere.
	cmd = msaDeleteCommand(policy.DataTypeBrowsingHistory)

	ok, _ = e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
}

func TestIsCommandActionable_CloudInstanceAllWildcard(t *testing.T) {
	doc := baseDocument()
	doc.SupportedCloudInstances = []string{"All"}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CloudInstance = "CN.Azure.Mooncake"

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestIsCommandActionable_TipOffline(t *testing.T) {
	doc := baseDocument()
	doc.AgentReadiness = "TestInProd"
	ag := buildAssetGroup(t, doc)
	ag.Agent = &fakeAgent{online: false}

	e := newEngine(t, Config{TestPortalSources: []string{testPortalSource}})

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CommandSource = testPortalSource

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonTipAgentIsNotOnline, reason)
}

func TestIsCommandActionable_TipOnlineTestPortal(t *testing.T) {
	doc := baseDocument()
	doc.AgentReadiness = "TestInProd"
	ag := buildAssetGroup(t, doc)
	ag.Agent = &fakeAgent{online: true}

	e := newEngine(t, Config{TestPortalSources: []string{testPortalSource}})

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CommandSource = testPortalSource

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestIsCommandActionable_TipProdTrafficRejected(t *testing.T) {
	doc := baseDocument()
	doc.AgentReadiness = "TestInProd"
	ag := buildAssetGroup(t, doc)
	ag.Agent = &fakeAgent{online: true}

	e := newEngine(t, Config{TestPortalSources: []string{testPortalSource}})

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CommandSource = "ProdFeed"

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonTipAgentShouldNotReceiveProdCommand, reason)
}

func TestIsCommandActionable_TipTenantFlight(t *testing.T) {
	tenant := uuid.New()

	doc := baseDocument()
	doc.AgentReadiness = "TestInProd"
	doc.TenantIDs = []string{tenant.String()}
	ag := buildAssetGroup(t, doc)
	ag.Agent = &fakeAgent{online: true}

	e := newEngine(t, Config{
		TipTenantFlightEnabled: true,
		TestPortalSources:      []string{testPortalSource},
	})

	// An export for a flighted tenant is allowed from any source.
	cmd := aadCommand(models.CapabilityExport, tenant, policy.DataTypeBrowsingHistory)
	cmd.CommandSource = "ProdFeed"

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	// Test portal traffic outside the flighted tenants is rejected once
	// the flight is live.
	cmd = msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CommandSource = testPortalSource

	ok, reason = e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonTipAgentNotInTestTenantIDFlight, reason)

	// Prod traffic outside the flight keeps its prod-specific reason.
	cmd = msaDeleteCommand(policy.DataTypeBrowsingHistory)
	cmd.CommandSource = "ProdFeed"

	ok, reason = e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonTipAgentShouldNotReceiveProdCommand, reason)
}

func TestIsCommandActionable_EngineVariantSuppression(t *testing.T) {
	doc := baseDocument()
	doc.VariantsAppliedByEngine = []models.VariantDocument{{
		AssetGroupID:        testAssetGroupID,
		VariantID:           models.VariantID(uuid.NewString()),
		AssetGroupQualifier: doc.AssetGroupQualifier,
		VariantName:         "LegalHold",
		IsAgentApplied:      false,
		DataTypes:           []string{"BrowsingHistory", "CustomerContact"},
	}}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	// Every data type on the command is covered by the variant, so the
	// command is suppressed outright.
	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory)

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonFilteredByVariant, reason)
}

func TestIsCommandActionable_EngineVariantPartialCoverage(t *testing.T) {
	doc := baseDocument()
	doc.VariantsAppliedByEngine = []models.VariantDocument{{
		AssetGroupID:        testAssetGroupID,
		VariantID:           models.VariantID(uuid.NewString()),
		AssetGroupQualifier: doc.AssetGroupQualifier,
		VariantName:         "LegalHold",
		DataTypes:           []string{"BrowsingHistory"},
	}}
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	// Only part of the command is covered: it still routes, carrying the
	// uncovered data types.
	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory, policy.DataTypeCustomerContact)

	ok, reason := e.IsCommandActionable(cmd, ag)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
	assert.Len(t, cmd.DataTypes, 2)
}

// Narrowing lands on the evaluated command even when a later check rejects
// it, so fan-out across asset groups must clone per evaluation.
func TestIsCommandActionable_CloneIsolatesNarrowing(t *testing.T) {
	doc := baseDocument()
	doc.SupportedCloudInstances = []string{"US.Azure.Fairfax"}
	doc.DeploymentLocation = "US.Azure.Fairfax"
	ag := buildAssetGroup(t, doc)

	e := newEngine(t, Config{})

	cmd := msaDeleteCommand(policy.DataTypeBrowsingHistory, policy.DataTypeCredentials)
	cmd.CloudInstance = "Public"

	evaluated := cmd.Clone()

	ok, reason := e.IsCommandActionable(evaluated, ag)
	assert.False(t, ok)
	assert.Equal(t, ReasonDoesNotMatchSupportedCloudInstances, reason)

	// The data-type check ran and narrowed before the cloud check rejected.
	assert.Equal(t, []policy.DataTypeID{policy.DataTypeBrowsingHistory}, evaluated.DataTypes)

	// The original command is untouched and free to fan out further.
	assert.Equal(t,
		[]policy.DataTypeID{policy.DataTypeBrowsingHistory, policy.DataTypeCredentials},
		cmd.DataTypes)
}

func TestIsCommandActionable_ReasonTagDependence(t *testing.T) {
	assert.False(t, ReasonNone.IsTagDependent())
	assert.False(t, ReasonAgentIsBlocked.IsTagDependent())
	assert.True(t, ReasonDoesNotMatchAssetGroupDataTypes.IsTagDependent())
	assert.True(t, ReasonFilteredByVariant.IsTagDependent())
}
