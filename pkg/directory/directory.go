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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/pdms"
)

// AuthOverride supplements an agent's authentication material when it is
// mid-migration between credentials. Matching accepts the override ids in
// addition to whatever the asset group documents declare.
type AuthOverride struct {
	MsaSiteIDs []int64     `json:"msa_site_ids,omitempty"`
	AadAppIDs  []uuid.UUID `json:"aad_app_ids,omitempty"`
}

// AgentRecord is one agent inside an immutable directory snapshot. The
// auth-match caches are the only mutable state; they memoize pure functions
// of the snapshot, so racing first-time lookups is harmless.
type AgentRecord struct {
	id          models.AgentID
	online      bool
	assetGroups map[models.AssetGroupID]*pdms.AssetGroupInfo
	ordered     []*pdms.AssetGroupInfo
	override    AuthOverride

	msaSiteMatches sync.Map // int64 -> bool
	aadAppMatches  sync.Map // uuid.UUID -> bool
}

// ID returns the agent's identifier.
func (a *AgentRecord) ID() models.AgentID { return a.id }

// IsOnline reports whether the agent was in the online set when this
// snapshot was built.
func (a *AgentRecord) IsOnline() bool { return a.online }

// AssetGroups returns the agent's asset groups in load order.
func (a *AgentRecord) AssetGroups() []*pdms.AssetGroupInfo { return a.ordered }

// TryGetAssetGroup looks up one of the agent's asset groups by id.
func (a *AgentRecord) TryGetAssetGroup(id models.AssetGroupID) (*pdms.AssetGroupInfo, bool) {
	info, ok := a.assetGroups[id]

	return info, ok
}

// MatchesMsaSiteID reports whether any of the agent's asset groups (or its
// auth override) authenticates with the given MSA site id.
func (a *AgentRecord) MatchesMsaSiteID(siteID int64) bool {
	if cached, ok := a.msaSiteMatches.Load(siteID); ok {
		return cached.(bool)
	}

	match := false

	for _, id := range a.override.MsaSiteIDs {
		if id == siteID {
			match = true

			break
		}
	}

	if !match {
		for _, info := range a.ordered {
			if info.MsaSiteID != nil && *info.MsaSiteID == siteID {
				match = true

				break
			}
		}
	}

	a.msaSiteMatches.Store(siteID, match)

	return match
}

// MatchesAadAppID reports whether any of the agent's asset groups (or its
// auth override) authenticates with the given AAD app id.
func (a *AgentRecord) MatchesAadAppID(appID uuid.UUID) bool {
	if cached, ok := a.aadAppMatches.Load(appID); ok {
		return cached.(bool)
	}

	match := false

	for _, id := range a.override.AadAppIDs {
		if id == appID {
			match = true

			break
		}
	}

	if !match {
		for _, info := range a.ordered {
			if info.AadAppID != uuid.Nil && info.AadAppID == appID {
				match = true

				break
			}
		}
	}

	a.aadAppMatches.Store(appID, match)

	return match
}

var _ pdms.AgentState = (*AgentRecord)(nil)

// AgentDirectory is one complete, immutable snapshot of the agent map.
// Readers hold it by pointer; a refresh publishes a whole new snapshot
// rather than mutating this one.
type AgentDirectory struct {
	version              int64
	assetGroupInfoStream string
	variantInfoStream    string
	createdTime          time.Time

	agents      map[models.AgentID]*AgentRecord
	assetGroups []*pdms.AssetGroupInfo
}

// Version returns the metadata batch version this snapshot was built from.
func (d *AgentDirectory) Version() int64 { return d.version }

// AssetGroupInfoStream names the provenance stream the asset group documents
// came from.
func (d *AgentDirectory) AssetGroupInfoStream() string { return d.assetGroupInfoStream }

// VariantInfoStream names the provenance stream the variant documents came
// from.
func (d *AgentDirectory) VariantInfoStream() string { return d.variantInfoStream }

// CreatedTime is the batch's creation timestamp.
func (d *AgentDirectory) CreatedTime() time.Time { return d.createdTime }

// TryGetAgent looks up an agent by id.
func (d *AgentDirectory) TryGetAgent(id models.AgentID) (*AgentRecord, bool) {
	record, ok := d.agents[id]

	return record, ok
}

// AgentIDs returns every agent id in the snapshot.
func (d *AgentDirectory) AgentIDs() []models.AgentID {
	ids := make([]models.AgentID, 0, len(d.agents))
	for id := range d.agents {
		ids = append(ids, id)
	}

	return ids
}

// AssetGroupInfos returns the flattened, deduplicated asset group list
// across all agents.
func (d *AgentDirectory) AssetGroupInfos() []*pdms.AssetGroupInfo {
	return d.assetGroups
}
