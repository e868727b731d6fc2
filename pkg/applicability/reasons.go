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

// ReasonCode explains why a command is or is not actionable against an asset
// group. The first failing pipeline check wins; callers must not reorder.
type ReasonCode string

const (
	// ReasonNone: the command is actionable.
	ReasonNone ReasonCode = "None"

	ReasonSyntheticTestCommand ReasonCode = "SyntheticTestCommand"
	ReasonAgentIsBlocked       ReasonCode = "AgentIsBlocked"
	ReasonAssetGroupIsBlocked  ReasonCode = "AssetGroupIsBlocked"

	ReasonAssetGroupInfoIsInvalid    ReasonCode = "AssetGroupInfoIsInvalid"
	ReasonAssetGroupInfoIsDeprecated ReasonCode = "AssetGroupInfoIsDeprecated"

	ReasonDoesNotMatchAssetGroupCapability ReasonCode = "DoesNotMatchAssetGroupCapability"
	ReasonDoesNotMatchAssetGroupSubjects   ReasonCode = "DoesNotMatchAssetGroupSubjects"
	ReasonDoesNotMatchAadSubjectTenantID   ReasonCode = "DoesNotMatchAadSubjectTenantId"
	ReasonDoesNotMatchAssetGroupDataTypes  ReasonCode = "DoesNotMatchAssetGroupDataTypes"

	ReasonDoesNotMatchSupportedCloudInstances ReasonCode = "DoesNotMatchAssetGroupSupportedCloudInstances"

	ReasonTipAgentIsNotOnline                 ReasonCode = "TipAgentIsNotOnline"
	ReasonTipAgentNotInTestTenantIDFlight     ReasonCode = "TipAgentNotInTestTenantIdFlight"
	ReasonTipAgentShouldNotReceiveProdCommand ReasonCode = "TipAgentShouldNotReceiveProdCommands"

	ReasonFilteredByVariant ReasonCode = "FilteredByVariant"
)

// tagIndependent reason codes describe the command or global state rather
// than any characteristic of the asset group, so they are excluded from
// per-asset-group reporting tags.
var tagIndependent = map[ReasonCode]struct{}{
	ReasonNone:                 {},
	ReasonSyntheticTestCommand: {},
	ReasonAgentIsBlocked:       {},
	ReasonAssetGroupIsBlocked:  {},
}

// IsTagDependent reports whether the reason code feeds per-asset-group
// reporting tags.
func (r ReasonCode) IsTagDependent() bool {
	_, independent := tagIndependent[r]
	return !independent
}
