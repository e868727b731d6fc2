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

// Package applicability decides, per command and asset group, whether the
// command is actionable, returning a reason code for every rejection.
package applicability

import (
	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/pdms"
	"github.com/carverauto/privacyrouter/pkg/policy"
)

// Config carries the engine's kill switches and flights.
type Config struct {
	// BlockedAgents and BlockedAssetGroups drop all traffic for the listed
	// ids.
	BlockedAgents      []models.AgentID      `json:"blocked_agents"`
	BlockedAssetGroups []models.AssetGroupID `json:"blocked_asset_groups"`

	// TipTenantFlightEnabled scopes test-in-production traffic to the asset
	// group's tenant allow-list.
	TipTenantFlightEnabled bool `json:"tip_tenant_flight_enabled"`

	// TestPortalSources are the command sources recognized as the internal
	// test surface.
	TestPortalSources []string `json:"test_portal_sources"`
}

// Engine evaluates command applicability. It is stateless apart from its
// configuration and safe for concurrent use.
type Engine struct {
	blockedAgents      map[models.AgentID]struct{}
	blockedAssetGroups map[models.AssetGroupID]struct{}
	testPortalSources  map[string]struct{}
	tipTenantFlight    bool
	log                logger.Logger
}

// New builds an Engine from config.
func New(cfg Config, log logger.Logger) *Engine {
	e := &Engine{
		blockedAgents:      make(map[models.AgentID]struct{}, len(cfg.BlockedAgents)),
		blockedAssetGroups: make(map[models.AssetGroupID]struct{}, len(cfg.BlockedAssetGroups)),
		testPortalSources:  make(map[string]struct{}, len(cfg.TestPortalSources)),
		tipTenantFlight:    cfg.TipTenantFlightEnabled,
		log:                log.WithComponent("applicability"),
	}

	for _, id := range cfg.BlockedAgents {
		e.blockedAgents[id] = struct{}{}
	}

	for _, id := range cfg.BlockedAssetGroups {
		e.blockedAssetGroups[id] = struct{}{}
	}

	for _, s := range cfg.TestPortalSources {
		e.testPortalSources[s] = struct{}{}
	}

	return e
}

// IsCommandActionable runs the ordered applicability pipeline. The first
// failing check short-circuits; its reason code is returned. On success the
// command's data types may have been narrowed to the subset this asset group
// supports (AccountClose is never narrowed).
//
// Narrowing mutates cmd in place and can happen before a later check
// rejects, so a caller evaluating one command against multiple asset groups
// must pass a fresh cmd.Clone() per asset group.
func (e *Engine) IsCommandActionable(cmd *models.PrivacyCommand, assetGroup *pdms.AssetGroupInfo) (bool, ReasonCode) {
	if cmd.IsSyntheticTest {
		return false, ReasonSyntheticTestCommand
	}

	if _, blocked := e.blockedAgents[assetGroup.AgentID]; blocked {
		return false, ReasonAgentIsBlocked
	}

	if _, blocked := e.blockedAssetGroups[assetGroup.AssetGroupID]; blocked {
		return false, ReasonAssetGroupIsBlocked
	}

	if valid, reason := assetGroup.IsValid(); !valid {
		e.log.Debug().
			Str("asset_group_id", string(assetGroup.AssetGroupID)).
			Str("reason", reason).
			Msg("asset group failed validation")

		return false, ReasonAssetGroupInfoIsInvalid
	}

	if assetGroup.IsDeprecated {
		return false, ReasonAssetGroupInfoIsDeprecated
	}

	if _, ok := assetGroup.SupportedCapabilities[cmd.Capability]; !ok {
		return false, ReasonDoesNotMatchAssetGroupCapability
	}

	if _, ok := assetGroup.SupportedSubjectTypes[cmd.Subject.Kind]; !ok {
		return false, ReasonDoesNotMatchAssetGroupSubjects
	}

	if reason := checkAadTenant(cmd, assetGroup); reason != ReasonNone {
		return false, reason
	}

	if reason := checkDataTypes(cmd, assetGroup); reason != ReasonNone {
		return false, reason
	}

	if reason := checkCloudInstance(cmd, assetGroup); reason != ReasonNone {
		return false, reason
	}

	if reason := e.checkReadiness(cmd, assetGroup); reason != ReasonNone {
		return false, reason
	}

	for _, variant := range assetGroup.EngineVariants {
		if variant.IsApplicableToCommand(cmd, true) {
			return false, ReasonFilteredByVariant
		}
	}

	// Agent-applied variants are not evaluated here; they travel with the
	// command for the receiving agent to apply.
	return true, ReasonNone
}

// checkAadTenant validates AAD subjects against the asset group's tenant
// allow-list. An empty allow-list means unrestricted.
func checkAadTenant(cmd *models.PrivacyCommand, assetGroup *pdms.AssetGroupInfo) ReasonCode {
	if len(assetGroup.TenantIDs) == 0 {
		return ReasonNone
	}

	switch cmd.Subject.Kind {
	case models.SubjectAad:
		if _, ok := assetGroup.TenantIDs[cmd.Subject.TenantID]; !ok {
			return ReasonDoesNotMatchAadSubjectTenantID
		}

	case models.SubjectAad2:
		if cmd.Subject.TenantIDType == models.TenantIDTypeHome {
			// A home-anchored command must be homed where it claims to be.
			if cmd.Subject.TenantID != cmd.Subject.HomeTenantID {
				return ReasonDoesNotMatchAadSubjectTenantID
			}

			if _, ok := assetGroup.TenantIDs[cmd.Subject.HomeTenantID]; !ok {
				return ReasonDoesNotMatchAadSubjectTenantID
			}
		} else {
			if _, ok := assetGroup.TenantIDs[cmd.Subject.TenantID]; !ok {
				return ReasonDoesNotMatchAadSubjectTenantID
			}
		}
	}

	return ReasonNone
}

// checkDataTypes applies the wildcard/intersection rules and narrows
// Delete/Export commands to the supported subset.
func checkDataTypes(cmd *models.PrivacyCommand, assetGroup *pdms.AssetGroupInfo) ReasonCode {
	switch cmd.Capability {
	case models.CapabilityAccountClose, models.CapabilityAgeOut:
		// Account closure applies to the whole asset group irrespective of
		// declared data types; age-out commands carry none.
		return ReasonNone
	}

	if _, any := assetGroup.SupportedDataTypes[policy.DataTypeAny]; any {
		return ReasonNone
	}

	matched := 0

	for _, dt := range cmd.DataTypes {
		if _, ok := assetGroup.SupportedDataTypes[dt]; ok {
			matched++
		}
	}

	if matched == 0 {
		return ReasonDoesNotMatchAssetGroupDataTypes
	}

	if matched < len(cmd.DataTypes) {
		cmd.RetainDataTypes(assetGroup.SupportedDataTypes)
	}

	return ReasonNone
}

// checkCloudInstance matches the command's declared cloud instance against
// the asset group's supported set. An undeclared command instance passes; an
// empty supported set (fallback disabled at parse time) is treated as
// always-pass on the routing path.
func checkCloudInstance(cmd *models.PrivacyCommand, assetGroup *pdms.AssetGroupInfo) ReasonCode {
	if len(assetGroup.SupportedCloudInstances) == 0 {
		return ReasonNone
	}

	if _, all := assetGroup.SupportedCloudInstances[policy.CloudAll]; all {
		return ReasonNone
	}

	if cmd.CloudInstance == "" {
		return ReasonNone
	}

	id, ok := policy.TryCreateCloudInstanceID(cmd.CloudInstance)
	if !ok {
		return ReasonDoesNotMatchSupportedCloudInstances
	}

	if _, ok := assetGroup.SupportedCloudInstances[id]; !ok {
		return ReasonDoesNotMatchSupportedCloudInstances
	}

	return ReasonNone
}

// checkReadiness gates test-in-production asset groups: only an online agent
// may receive traffic, and only from the test surface or the tenant flight.
func (e *Engine) checkReadiness(cmd *models.PrivacyCommand, assetGroup *pdms.AssetGroupInfo) ReasonCode {
	if assetGroup.Readiness != models.ReadinessTestInProd {
		return ReasonNone
	}

	if assetGroup.Agent == nil || !assetGroup.Agent.IsOnline() {
		return ReasonTipAgentIsNotOnline
	}

	_, fromTestPortal := e.testPortalSources[cmd.CommandSource]

	if fromTestPortal && !e.tipTenantFlight {
		return ReasonNone
	}

	if e.tipTenantFlight && tipTenantAllowed(cmd, assetGroup) {
		return ReasonNone
	}

	if fromTestPortal {
		return ReasonTipAgentNotInTestTenantIDFlight
	}

	return ReasonTipAgentShouldNotReceiveProdCommand
}

// tipTenantAllowed reports whether an export-capable AAD command's tenant is
// in the asset group's allow-list.
func tipTenantAllowed(cmd *models.PrivacyCommand, assetGroup *pdms.AssetGroupInfo) bool {
	if cmd.Capability != models.CapabilityExport {
		return false
	}

	var tenant policy.TenantID

	switch cmd.Subject.Kind {
	case models.SubjectAad:
		tenant = cmd.Subject.TenantID
	case models.SubjectAad2:
		if cmd.Subject.TenantIDType == models.TenantIDTypeHome {
			tenant = cmd.Subject.HomeTenantID
		} else {
			tenant = cmd.Subject.TenantID
		}
	default:
		return false
	}

	_, ok := assetGroup.TenantIDs[tenant]

	return ok
}
