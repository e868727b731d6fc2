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

// Package models holds the shared data types exchanged between the metadata
// feed, the data agent directory, and the applicability engine.
package models

// AgentID identifies one registered data agent.
type AgentID string

// AssetGroupID identifies one asset group owned by an agent. The
// (AgentID, AssetGroupID) tuple is unique within one directory version.
type AssetGroupID string

// VariantID identifies one variant rule.
type VariantID string

// CommandCapability is the kind of privacy command an agent can execute.
type CommandCapability string

const (
	CapabilityDelete       CommandCapability = "Delete"
	CapabilityExport       CommandCapability = "Export"
	CapabilityAccountClose CommandCapability = "AccountClose"
	CapabilityAgeOut       CommandCapability = "AgeOut"
)

// PdmsSubjectType is the subject taxonomy used by the external metadata feed.
type PdmsSubjectType string

const (
	PdmsSubjectInvalid           PdmsSubjectType = "Invalid"
	PdmsSubjectAADUser           PdmsSubjectType = "AADUser"
	PdmsSubjectAADUser2          PdmsSubjectType = "AADUser2"
	PdmsSubjectMSAUser           PdmsSubjectType = "MSAUser"
	PdmsSubjectXbox              PdmsSubjectType = "Xbox"
	PdmsSubjectDemographicUser   PdmsSubjectType = "DemographicUser"
	PdmsSubjectMicrosoftEmployee PdmsSubjectType = "MicrosoftEmployee"
	PdmsSubjectDeviceOther       PdmsSubjectType = "DeviceOther"
	PdmsSubjectWindows10Device   PdmsSubjectType = "Windows10Device"
	PdmsSubjectNonWindowsDevice  PdmsSubjectType = "NonWindowsDevice"
	PdmsSubjectEdgeBrowser       PdmsSubjectType = "EdgeBrowser"
	PdmsSubjectOther             PdmsSubjectType = "Other"
)

// SubjectType is the internal routing taxonomy subjects are mapped into.
type SubjectType string

const (
	SubjectMsa               SubjectType = "Msa"
	SubjectAad               SubjectType = "Aad"
	SubjectAad2              SubjectType = "Aad2"
	SubjectDevice            SubjectType = "Device"
	SubjectDemographic       SubjectType = "Demographic"
	SubjectMicrosoftEmployee SubjectType = "MicrosoftEmployee"
	SubjectNonWindowsDevice  SubjectType = "NonWindowsDevice"
	SubjectEdgeBrowser       SubjectType = "EdgeBrowser"
)

// ReadinessState gates which traffic an asset group may receive.
type ReadinessState string

const (
	// ReadinessProdReady asset groups serve all traffic.
	ReadinessProdReady ReadinessState = "ProdReady"

	// ReadinessTestInProd asset groups serve only test-surface traffic,
	// conditionally.
	ReadinessTestInProd ReadinessState = "TestInProd"
)

// TenantIDType distinguishes where an AADUser2 subject's command is anchored.
type TenantIDType string

const (
	TenantIDTypeHome     TenantIDType = "Home"
	TenantIDTypeResource TenantIDType = "Resource"
)
