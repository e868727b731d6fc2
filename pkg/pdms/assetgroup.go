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

package pdms

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/policy"
	"github.com/carverauto/privacyrouter/pkg/qualifier"
)

// Extended property keys carried by asset group documents.
const (
	ExtPropSupportsLowPriorityQueue = "SupportsLowPriorityQueue"
	ExtPropProtocolVersion          = "ProtocolVersion"
)

// AgentState is the slice of agent context the applicability engine needs
// from the directory when evaluating an asset group.
type AgentState interface {
	IsOnline() bool
}

// AssetGroupInfo is one parsed, validated asset group: a single data asset
// owned by one agent. Records are built once per refresh cycle and are
// immutable afterwards; a refresh supersedes them wholesale.
type AssetGroupInfo struct {
	AgentID      models.AgentID
	AssetGroupID models.AssetGroupID

	QualifierRaw string
	Qualifier    qualifier.Qualifier

	IsDeprecated bool
	MsaSiteID    *int64
	AadAppID     uuid.UUID
	Readiness    models.ReadinessState

	DeploymentLocation      policy.CloudInstanceID
	SupportedCloudInstances map[policy.CloudInstanceID]struct{}

	SupportedDataTypes    map[policy.DataTypeID]struct{}
	SupportedCapabilities map[models.CommandCapability]struct{}
	PdmsSubjectTypes      map[models.PdmsSubjectType]struct{}
	SupportedSubjectTypes map[models.SubjectType]struct{}
	TenantIDs             map[policy.TenantID]struct{}

	ExtendedProps map[string]string

	// EngineVariants are evaluated by the routing engine before dispatch;
	// AgentVariants are forwarded to the receiving agent as metadata.
	EngineVariants []*AssetGroupVariantInfo
	AgentVariants  []*AssetGroupVariantInfo

	// Agent is the owning agent's state, populated when a directory
	// snapshot is built. Nil means the agent is unknown (treated offline).
	Agent AgentState

	qualifierValid bool
}

// NewAssetGroupInfo parses one raw asset group document, including the
// variant lists the feed embeds pre-split.
func NewAssetGroupInfo(p *Parser, doc models.AssetGroupDocument, tolerant bool) (*AssetGroupInfo, error) {
	info := &AssetGroupInfo{
		AgentID:       doc.AgentID,
		AssetGroupID:  doc.AssetGroupID,
		QualifierRaw:  doc.AssetGroupQualifier,
		IsDeprecated:  doc.IsDeprecated,
		MsaSiteID:     doc.MsaSiteID,
		ExtendedProps: doc.ExtendedProps,
	}

	q, err := qualifier.Parse(doc.AssetGroupQualifier)
	if err != nil || q.IsEmpty() {
		if !tolerant {
			return nil, fmt.Errorf("%w: asset group %s: %v", ErrInvalidQualifier, doc.AssetGroupID, err)
		}

		p.log.Warn().
			Str("asset_group_id", string(doc.AssetGroupID)).
			Str("qualifier", doc.AssetGroupQualifier).
			Msg("asset group qualifier failed to parse")
	} else {
		info.Qualifier = q
		info.qualifierValid = true
	}

	if strings.TrimSpace(doc.AadAppID) != "" {
		appID, err := uuid.Parse(doc.AadAppID)
		if err != nil {
			if !tolerant {
				return nil, fmt.Errorf("%w: asset group %s: bad aad app id %q", ErrStrictParse, doc.AssetGroupID, doc.AadAppID)
			}

			p.log.Warn().
				Str("asset_group_id", string(doc.AssetGroupID)).
				Str("aad_app_id", doc.AadAppID).
				Msg("failed to parse aad app id")
		} else {
			info.AadAppID = appID
		}
	}

	capabilities, err := p.ParseCapabilities(doc.Capabilities, tolerant)
	if err != nil {
		return nil, err
	}

	pdmsSubjects, err := p.ParsePdmsSubjectTypes(doc.SubjectTypes, tolerant)
	if err != nil {
		return nil, err
	}

	// The internal taxonomy mapping drops "Other" silently; a subject the
	// feed knows but routing does not is tolerated the same way.
	routingSubjects, err := p.MapSubjectTypes(pdmsSubjects, tolerant)
	if err != nil {
		return nil, err
	}

	dataTypes, err := p.ParseDataTypes(doc.DataTypes, tolerant)
	if err != nil {
		return nil, err
	}

	tenantIDs, err := p.ParseTenantIDs(doc.TenantIDs, tolerant)
	if err != nil {
		return nil, err
	}

	clouds, err := p.ParseSupportedCloudInstances(doc.SupportedCloudInstances, tolerant)
	if err != nil {
		return nil, err
	}

	location, err := p.ParseDeploymentLocation(doc.DeploymentLocation, tolerant)
	if err != nil {
		return nil, err
	}

	readiness, err := p.ParseReadinessState(doc.AgentReadiness, tolerant)
	if err != nil {
		return nil, err
	}

	info.SupportedCapabilities = toSet(capabilities)
	info.PdmsSubjectTypes = toSet(pdmsSubjects)
	info.SupportedSubjectTypes = toSet(routingSubjects)
	info.SupportedDataTypes = toSet(dataTypes)
	info.TenantIDs = toSet(tenantIDs)
	info.SupportedCloudInstances = toSet(clouds)
	info.DeploymentLocation = location
	info.Readiness = readiness

	for _, variantDoc := range doc.VariantsAppliedByEngine {
		variant, err := NewVariantInfo(p, variantDoc, tolerant)
		if err != nil {
			if !tolerant {
				return nil, err
			}

			p.log.Warn().
				Str("variant_id", string(variantDoc.VariantID)).
				Err(err).
				Msg("dropping unparseable engine variant")

			continue
		}

		info.EngineVariants = append(info.EngineVariants, variant)
	}

	for _, variantDoc := range doc.VariantsAppliedByAgent {
		variant, err := NewVariantInfo(p, variantDoc, tolerant)
		if err != nil {
			if !tolerant {
				return nil, err
			}

			p.log.Warn().
				Str("variant_id", string(variantDoc.VariantID)).
				Err(err).
				Msg("dropping unparseable agent variant")

			continue
		}

		info.AgentVariants = append(info.AgentVariants, variant)
	}

	return info, nil
}

// IsValid reports whether the record is routable, with a human-readable
// justification when it is not. Validation failures are never fatal; the
// applicability engine turns them into a reason code.
func (a *AssetGroupInfo) IsValid() (bool, string) {
	if !a.qualifierValid {
		return false, fmt.Sprintf("asset group %s has an unparseable qualifier %q", a.AssetGroupID, a.QualifierRaw)
	}

	if len(a.SupportedCapabilities) == 0 {
		return false, fmt.Sprintf("asset group %s supports no capabilities", a.AssetGroupID)
	}

	if len(a.PdmsSubjectTypes) == 0 {
		return false, fmt.Sprintf("asset group %s supports no subject types", a.AssetGroupID)
	}

	if len(a.SupportedDataTypes) == 0 {
		return false, fmt.Sprintf("asset group %s supports no data types", a.AssetGroupID)
	}

	// A sovereign-cloud deployment may only declare itself as supported:
	// anything else risks routing a sovereign command to the public cloud.
	if a.DeploymentLocation != "" && a.DeploymentLocation != policy.CloudPublic && len(a.SupportedCloudInstances) > 0 {
		_, self := a.SupportedCloudInstances[a.DeploymentLocation]
		if !self || len(a.SupportedCloudInstances) != 1 {
			return false, fmt.Sprintf(
				"asset group %s is deployed in %s but supports other cloud instances",
				a.AssetGroupID, a.DeploymentLocation)
		}
	}

	return true, ""
}

// SupportsLowPriorityQueue reports the low-priority-queue opt-in carried in
// extended properties.
func (a *AssetGroupInfo) SupportsLowPriorityQueue() bool {
	return strings.EqualFold(a.ExtendedProps[ExtPropSupportsLowPriorityQueue], "true")
}

// ProtocolVersion returns the agent protocol version from extended
// properties, or the empty string when unset.
func (a *AssetGroupInfo) ProtocolVersion() string {
	return a.ExtendedProps[ExtPropProtocolVersion]
}
