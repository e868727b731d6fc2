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

// Package directorytest provides a canned metadata batch and a static
// MetadataSource for tests that need a realistic agent map without a live
// feed.
package directorytest

import (
	"context"
	"time"

	"github.com/carverauto/privacyrouter/pkg/directory"
	"github.com/carverauto/privacyrouter/pkg/models"
)

// Well-known fixture ids, exported so tests can address specific records.
const (
	StorageAgentID   = models.AgentID("14b1e8de19ad41329344abfe28f37d04")
	AnalyticsAgentID = models.AgentID("52fe84b1c4ad4798863619e49c9a1fc6")
	TipAgentID       = models.AgentID("a7c30dd8c09b4e7593f124bfe1a2cf04")

	StorageTableGroupID = models.AssetGroupID("7a6a494cd2e047a18f1863368a19b79f")
	StorageBlobGroupID  = models.AssetGroupID("f67a3c40552d43f5b423b4b17cb57f3d")
	AnalyticsGroupID    = models.AssetGroupID("0b5ca51dbb5c4201a8532ecfbaf25c39")
	DeprecatedGroupID   = models.AssetGroupID("c14a5a4586bd46e3a0d01b9372ee9eb4")
	TipGroupID          = models.AssetGroupID("3d0e92a423bd4e10a1f5273de9c2fd41")

	LegalHoldVariantID = models.VariantID("e1adf1b495a64a1b8f06e4f7b4d0b79c")

	// FixtureTenantID is allow-listed on the analytics group.
	FixtureTenantID = "f83f3e6a-6c05-4b0b-87d3-b9b04c0a2c79"
)

// Batch returns a fresh copy of the fixture batch: three agents, five asset
// groups (one deprecated, one test-in-production), one engine-applied
// variant scoped to the storage table group.
func Batch() *models.MetadataBatch {
	return &models.MetadataBatch{
		Version:              7,
		AssetGroupInfoStream: "pdms-assetgroups-prod",
		VariantInfoStream:    "pdms-variants-prod",
		CreatedTime:          time.Date(2026, time.August, 14, 9, 30, 0, 0, time.UTC),
		AssetGroupInfos: []models.AssetGroupDocument{
			{
				AgentID:             StorageAgentID,
				AssetGroupID:        StorageTableGroupID,
				AssetGroupQualifier: "AssetType=AzureTable;AccountName=ustprocessor;TableName=usercommands",
				AuthenticationType:  "MsaSiteBasedAuth",
				Capabilities:        []string{"Delete", "Export"},
				DataTypes:           []string{"BrowsingHistory", "SearchRequestsAndQuery"},
				SubjectTypes:        []string{"MSAUser", "Xbox"},
				AgentReadiness:      "ProdReady",
				MsaSiteID:           int64Ptr(296170),
			},
			{
				AgentID:             StorageAgentID,
				AssetGroupID:        StorageBlobGroupID,
				AssetGroupQualifier: "AssetType=AzureBlob;AccountName=ustprocessor;ContainerName=exports",
				AuthenticationType:  "MsaSiteBasedAuth",
				Capabilities:        []string{"Export", "AccountClose"},
				DataTypes:           []string{"Any"},
				SubjectTypes:        []string{"MSAUser"},
				AgentReadiness:      "ProdReady",
				MsaSiteID:           int64Ptr(296170),
			},
			{
				AgentID:             AnalyticsAgentID,
				AssetGroupID:        AnalyticsGroupID,
				AssetGroupQualifier: "AssetType=CosmosStructuredStream;PhysicalCluster=cosmos15;VirtualCluster=pxs.analytics",
				AuthenticationType:  "AadAppBasedAuth",
				Capabilities:        []string{"Delete", "Export"},
				DataTypes:           []string{"ProductAndServiceUsage", "CustomerContact"},
				SubjectTypes:        []string{"AADUser"},
				TenantIDs:           []string{FixtureTenantID},
				AgentReadiness:      "ProdReady",
				AadAppID:            "9c1d3a22-4b69-4e54-9a1e-0cf1e3b0cf3f",
			},
			{
				AgentID:             AnalyticsAgentID,
				AssetGroupID:        DeprecatedGroupID,
				AssetGroupQualifier: "AssetType=CosmosStructuredStream;PhysicalCluster=cosmos08;VirtualCluster=pxs.analytics",
				Capabilities:        []string{"Delete"},
				DataTypes:           []string{"ProductAndServiceUsage"},
				SubjectTypes:        []string{"AADUser"},
				AgentReadiness:      "ProdReady",
				IsDeprecated:        true,
			},
			{
				AgentID:             TipAgentID,
				AssetGroupID:        TipGroupID,
				AssetGroupQualifier: "AssetType=AzureTable;AccountName=tipcandidate;TableName=signals",
				Capabilities:        []string{"Delete", "Export"},
				DataTypes:           []string{"DeviceConnectivityAndConfiguration"},
				SubjectTypes:        []string{"MSAUser"},
				AgentReadiness:      "TestInProd",
			},
		},
		VariantInfos: []models.VariantDocument{
			{
				AssetGroupID:        StorageTableGroupID,
				VariantID:           LegalHoldVariantID,
				AssetGroupQualifier: "AssetType=AzureTable;AccountName=ustprocessor;TableName=usercommands",
				VariantName:         "LegalHold",
				VariantDescription:  "Records under litigation hold are exempt from deletion.",
				IsAgentApplied:      false,
				Capabilities:        []string{"Delete"},
				DataTypes:           []string{"SearchRequestsAndQuery"},
			},
		},
	}
}

// StaticSource serves the fixture batch as both latest and historical
// version. It never fails.
type StaticSource struct {
	batch *models.MetadataBatch
}

// NewStaticSource returns a source over the given batch, defaulting to
// Batch() when nil.
func NewStaticSource(batch *models.MetadataBatch) *StaticSource {
	if batch == nil {
		batch = Batch()
	}

	return &StaticSource{batch: batch}
}

func (s *StaticSource) LatestVersion(_ context.Context) (int64, error) {
	return s.batch.Version, nil
}

func (s *StaticSource) ReadLatest(_ context.Context) (*models.MetadataBatch, error) {
	return s.batch, nil
}

func (s *StaticSource) ReadVersion(_ context.Context, version int64) (*models.MetadataBatch, error) {
	if version != s.batch.Version {
		return nil, directory.ErrVersionNotFound
	}

	return s.batch, nil
}

var _ directory.MetadataSource = (*StaticSource)(nil)

func int64Ptr(v int64) *int64 { return &v }
