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

	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/policy"
	"github.com/carverauto/privacyrouter/pkg/qualifier"
)

// AssetGroupVariantInfo is one parsed variant rule: a suppression/override
// scoped to a qualifier, applied either by the routing engine or deferred to
// the receiving agent. Empty restriction sets mean "applies to all".
type AssetGroupVariantInfo struct {
	VariantID          models.VariantID
	VariantName        string
	VariantDescription string
	AssetGroupID       models.AssetGroupID
	QualifierRaw       string
	Qualifier          qualifier.Qualifier
	IsAgentApplied     bool

	Capabilities map[models.CommandCapability]struct{}
	SubjectTypes map[models.PdmsSubjectType]struct{}
	DataTypes    map[policy.DataTypeID]struct{}
}

// NewVariantInfo parses one raw variant document.
func NewVariantInfo(p *Parser, doc models.VariantDocument, tolerant bool) (*AssetGroupVariantInfo, error) {
	q, err := qualifier.Parse(doc.AssetGroupQualifier)
	if err != nil {
		return nil, fmt.Errorf("%w: variant %s: %v", ErrInvalidQualifier, doc.VariantID, err)
	}

	capabilities, err := p.ParseCapabilities(doc.Capabilities, tolerant)
	if err != nil {
		return nil, err
	}

	subjects, err := p.ParsePdmsSubjectTypes(doc.SubjectTypes, tolerant)
	if err != nil {
		return nil, err
	}

	dataTypes, err := p.ParseDataTypes(doc.DataTypes, tolerant)
	if err != nil {
		return nil, err
	}

	return &AssetGroupVariantInfo{
		VariantID:          doc.VariantID,
		VariantName:        doc.VariantName,
		VariantDescription: doc.VariantDescription,
		AssetGroupID:       doc.AssetGroupID,
		QualifierRaw:       doc.AssetGroupQualifier,
		Qualifier:          q,
		IsAgentApplied:     doc.IsAgentApplied,
		Capabilities:       toSet(capabilities),
		SubjectTypes:       toSet(subjects),
		DataTypes:          toSet(dataTypes),
	}, nil
}

// IsApplicableToCommand reports whether this variant suppresses the given
// command. isEngineApplied distinguishes evaluation inside the routing
// engine from evaluation by the receiving agent.
//
// When applied by the engine against a Delete/Export command, a data-type
// restriction only suppresses if it covers every data type the command
// carries; the covered data types are then removed from the command. A
// partial overlap leaves the command untouched and does not suppress.
// AccountClose is never suppressed by a data-type restriction at the engine;
// only the agent may apply it.
func (v *AssetGroupVariantInfo) IsApplicableToCommand(cmd *models.PrivacyCommand, isEngineApplied bool) bool {
	if len(v.SubjectTypes) > 0 {
		if _, ok := v.SubjectTypes[PdmsSubjectOf(cmd.Subject)]; !ok {
			return false
		}
	}

	if len(v.Capabilities) > 0 {
		if _, ok := v.Capabilities[cmd.Capability]; !ok {
			return false
		}
	}

	if len(v.DataTypes) > 0 {
		if cmd.Capability == models.CapabilityAccountClose {
			return !isEngineApplied
		}

		// Compare distinct sets: a command may carry a data type more than
		// once, and coverage is a property of the set, not the list.
		carried := make(map[policy.DataTypeID]struct{}, len(cmd.DataTypes))
		matched := make(map[policy.DataTypeID]struct{})

		for _, dt := range cmd.DataTypes {
			carried[dt] = struct{}{}

			if _, ok := v.DataTypes[dt]; ok {
				matched[dt] = struct{}{}
			}
		}

		if len(matched) == 0 {
			return false
		}

		if isEngineApplied {
			if len(matched) < len(carried) {
				// Partial coverage: the command proceeds with all of its
				// data types; this variant does not suppress it.
				return false
			}

			cmd.RemoveDataTypes(matched)

			return true
		}

		return true
	}

	return true
}

func toSet[T comparable](values []T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}
