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

package models

import "time"

// AssetGroupDocument is the raw wire/storage form of one asset group as
// published by the metadata feed.
type AssetGroupDocument struct {
	AgentID                 AgentID           `json:"AgentId"`
	AssetGroupID            AssetGroupID      `json:"AssetGroupId"`
	AssetGroupQualifier     string            `json:"AssetGroupQualifier"`
	AuthenticationType      string            `json:"AuthenticationType,omitempty"`
	Capabilities            []string          `json:"Capabilities"`
	DataTypes               []string          `json:"DataTypes"`
	SubjectTypes            []string          `json:"SubjectTypes"`
	TenantIDs               []string          `json:"TenantIds"`
	AgentReadiness          string            `json:"AgentReadiness"`
	IsDeprecated            bool              `json:"IsDeprecated"`
	MsaSiteID               *int64            `json:"MsaSiteId"`
	AadAppID                string            `json:"AadAppId,omitempty"`
	SupportedCloudInstances []string          `json:"SupportedCloudInstances"`
	DeploymentLocation      string            `json:"DeploymentLocation,omitempty"`
	ExtendedProps           map[string]string `json:"ExtendedProps,omitempty"`

	// Variants already split by the feed into "applied by the agent" vs
	// "applied by the routing engine".
	VariantsAppliedByAgent  []VariantDocument `json:"VariantInfosAppliedByAgents"`
	VariantsAppliedByEngine []VariantDocument `json:"VariantInfosAppliedByPcf"`
}

// VariantDocument is the raw wire/storage form of one variant rule. Nil or
// empty restriction arrays mean "applies to all".
type VariantDocument struct {
	AssetGroupID        AssetGroupID `json:"AssetGroupId"`
	VariantID           VariantID    `json:"VariantId"`
	AssetGroupQualifier string       `json:"AssetGroupQualifier"`
	VariantName         string       `json:"VariantName"`
	VariantDescription  string       `json:"VariantDescription"`
	IsAgentApplied      bool         `json:"IsAgentApplied"`
	Capabilities        []string     `json:"Capabilities"`
	SubjectTypes        []string     `json:"SubjectTypes"`
	DataTypes           []string     `json:"DataTypes"`
}

// MetadataBatch is one full versioned read from a metadata source.
type MetadataBatch struct {
	Version              int64                `json:"Version"`
	AssetGroupInfos      []AssetGroupDocument `json:"AssetGroupInfos"`
	VariantInfos         []VariantDocument    `json:"VariantInfos"`
	AssetGroupInfoStream string               `json:"AssetGroupInfoStream"`
	VariantInfoStream    string               `json:"VariantInfoStream"`
	CreatedTime          time.Time            `json:"CreatedTime"`
}
