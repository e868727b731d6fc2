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
	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/qualifier"
)

// VariantAssociator matches batch-level variants to asset groups by
// qualifier containment. It is built once per refresh cycle from the batch's
// variant documents, grouped by their parsed qualifier.
type VariantAssociator struct {
	groups []variantGroup
}

type variantGroup struct {
	qualifier qualifier.Qualifier
	variants  []*AssetGroupVariantInfo
}

// NewVariantAssociator parses the batch's variant documents and groups them
// by qualifier. Unparseable variants are dropped with a warning in tolerant
// mode and abort in strict mode.
func NewVariantAssociator(p *Parser, docs []models.VariantDocument, tolerant bool, log logger.Logger) (*VariantAssociator, error) {
	byKey := make(map[string]int)
	a := &VariantAssociator{}

	for _, doc := range docs {
		variant, err := NewVariantInfo(p, doc, tolerant)
		if err != nil {
			if !tolerant {
				return nil, err
			}

			log.Warn().
				Str("variant_id", string(doc.VariantID)).
				Err(err).
				Msg("dropping unparseable variant")

			continue
		}

		key := variant.Qualifier.String()

		idx, ok := byKey[key]
		if !ok {
			idx = len(a.groups)
			byKey[key] = idx
			a.groups = append(a.groups, variantGroup{qualifier: variant.Qualifier})
		}

		a.groups[idx].variants = append(a.groups[idx].variants, variant)
	}

	return a, nil
}

// Associate classifies every variant group relative to the asset group's
// qualifier and appends the matches to the record's two variant lists:
//
//   - Variant qualifier equals or contains the asset group qualifier (the
//     asset group is equal-or-more-specific): the engine can evaluate the
//     rule safely, so each variant follows its own IsAgentApplied flag.
//   - Asset group qualifier contains the variant qualifier (the asset group
//     is broader than the rule's declared scope): the engine cannot evaluate
//     it safely, so every variant is deferred to the agent.
//   - Neither contains the other: unrelated, not associated.
func (a *VariantAssociator) Associate(info *AssetGroupInfo) {
	if !info.qualifierValid {
		return
	}

	for _, group := range a.groups {
		switch {
		case group.qualifier.Contains(info.Qualifier):
			for _, v := range group.variants {
				if v.IsAgentApplied {
					info.AgentVariants = append(info.AgentVariants, v)
				} else {
					info.EngineVariants = append(info.EngineVariants, v)
				}
			}

		case info.Qualifier.Contains(group.qualifier):
			info.AgentVariants = append(info.AgentVariants, group.variants...)
		}
	}
}
