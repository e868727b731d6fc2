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

// Package pdms converts raw metadata-feed documents into the validated asset
// group and variant records the routing engine evaluates commands against.
package pdms

import (
	"fmt"
	"strings"

	"github.com/carverauto/privacyrouter/pkg/logger"
	"github.com/carverauto/privacyrouter/pkg/models"
	"github.com/carverauto/privacyrouter/pkg/policy"
)

// parseOutcome classifies the result of parsing one raw token.
type parseOutcome int

const (
	// parseSuccess: the token was understood and applicable.
	parseSuccess parseOutcome = iota

	// parseFailure: the token was unknown.
	parseFailure

	// parseIgnore: the token was understood and should be dropped silently.
	parseIgnore
)

// Parser converts raw strings from the metadata feed into typed values.
//
// Every multi-value parse follows the same policy: in strict mode the first
// unknown token aborts the whole parse; in tolerant mode unknown tokens are
// skipped with a warning. Strict mode is used only at data-publish time;
// everything consuming data for routing parses tolerantly.
type Parser struct {
	log logger.Logger

	// cloudFallbackDisabled turns off the All/Public substitution for
	// missing cloud instance configuration. Fallback is enabled by default.
	cloudFallbackDisabled bool
}

// NewParser builds a Parser. The cloudFallbackDisabled kill switch gates the
// cloud-instance and deployment-location fallback behavior.
func NewParser(log logger.Logger, cloudFallbackDisabled bool) *Parser {
	return &Parser{
		log:                   log.WithComponent("pdms"),
		cloudFallbackDisabled: cloudFallbackDisabled,
	}
}

// ParseCapability maps a raw capability string to a command capability.
// "View" is a valid schema element we do not route; it parses as ignored.
func (p *Parser) ParseCapability(raw string) (models.CommandCapability, parseOutcome) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delete":
		return models.CapabilityDelete, parseSuccess
	case "export":
		return models.CapabilityExport, parseSuccess
	case "accountclose":
		return models.CapabilityAccountClose, parseSuccess
	case "ageout":
		return models.CapabilityAgeOut, parseSuccess
	case "view":
		return "", parseIgnore
	default:
		p.log.Warn().Str("value", raw).Msg("failed to parse capability")
		return "", parseFailure
	}
}

// ParseCapabilities parses a capability collection.
func (p *Parser) ParseCapabilities(raw []string, tolerant bool) ([]models.CommandCapability, error) {
	return parseCollection(raw, tolerant, "capability", p.ParseCapability)
}

var pdmsSubjectTypes = map[string]models.PdmsSubjectType{
	"aaduser":           models.PdmsSubjectAADUser,
	"aaduser2":          models.PdmsSubjectAADUser2,
	"msauser":           models.PdmsSubjectMSAUser,
	"xbox":              models.PdmsSubjectXbox,
	"demographicuser":   models.PdmsSubjectDemographicUser,
	"microsoftemployee": models.PdmsSubjectMicrosoftEmployee,
	"deviceother":       models.PdmsSubjectDeviceOther,
	"windows10device":   models.PdmsSubjectWindows10Device,
	"nonwindowsdevice":  models.PdmsSubjectNonWindowsDevice,
	"edgebrowser":       models.PdmsSubjectEdgeBrowser,
	"other":             models.PdmsSubjectOther,
}

// ParsePdmsSubjectType maps a raw subject string to the feed taxonomy. The
// "Invalid" sentinel never parses.
func (p *Parser) ParsePdmsSubjectType(raw string) (models.PdmsSubjectType, parseOutcome) {
	subject, ok := pdmsSubjectTypes[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		p.log.Warn().Str("value", raw).Msg("failed to parse subject type")
		return models.PdmsSubjectInvalid, parseFailure
	}

	return subject, parseSuccess
}

// ParsePdmsSubjectTypes parses a subject type collection.
func (p *Parser) ParsePdmsSubjectTypes(raw []string, tolerant bool) ([]models.PdmsSubjectType, error) {
	return parseCollection(raw, tolerant, "subject type", p.ParsePdmsSubjectType)
}

// MapSubjectType converts a feed-taxonomy subject into the internal routing
// taxonomy. "Other" is valid but irrelevant to routing and maps to ignore.
func (p *Parser) MapSubjectType(subject models.PdmsSubjectType) (models.SubjectType, parseOutcome) {
	switch subject {
	case models.PdmsSubjectAADUser:
		return models.SubjectAad, parseSuccess
	case models.PdmsSubjectAADUser2:
		return models.SubjectAad2, parseSuccess
	case models.PdmsSubjectMSAUser, models.PdmsSubjectXbox:
		return models.SubjectMsa, parseSuccess
	case models.PdmsSubjectDemographicUser:
		return models.SubjectDemographic, parseSuccess
	case models.PdmsSubjectMicrosoftEmployee:
		return models.SubjectMicrosoftEmployee, parseSuccess
	case models.PdmsSubjectDeviceOther, models.PdmsSubjectWindows10Device:
		return models.SubjectDevice, parseSuccess
	case models.PdmsSubjectNonWindowsDevice:
		return models.SubjectNonWindowsDevice, parseSuccess
	case models.PdmsSubjectEdgeBrowser:
		return models.SubjectEdgeBrowser, parseSuccess
	case models.PdmsSubjectOther:
		return "", parseIgnore
	default:
		p.log.Warn().Str("value", string(subject)).Msg("no routing subject mapping")
		return "", parseFailure
	}
}

// MapSubjectTypes converts a feed-taxonomy subject collection.
func (p *Parser) MapSubjectTypes(subjects []models.PdmsSubjectType, tolerant bool) ([]models.SubjectType, error) {
	return parseCollection(subjects, tolerant, "routing subject", p.MapSubjectType)
}

// ParseDataType resolves a raw string against the policy data type catalog.
func (p *Parser) ParseDataType(raw string) (policy.DataTypeID, parseOutcome) {
	dt, ok := policy.TryCreateDataTypeID(raw)
	if !ok {
		p.log.Warn().Str("value", raw).Msg("failed to parse data type")
		return "", parseFailure
	}

	return dt, parseSuccess
}

// ParseDataTypes parses a data type collection.
func (p *Parser) ParseDataTypes(raw []string, tolerant bool) ([]policy.DataTypeID, error) {
	return parseCollection(raw, tolerant, "data type", p.ParseDataType)
}

// ParseTenantID parses a raw tenant id.
func (p *Parser) ParseTenantID(raw string) (policy.TenantID, parseOutcome) {
	id, ok := policy.ParseTenantID(raw)
	if !ok {
		p.log.Warn().Str("value", raw).Msg("failed to parse tenant id")
		return id, parseFailure
	}

	return id, parseSuccess
}

// ParseTenantIDs parses a tenant id collection.
func (p *Parser) ParseTenantIDs(raw []string, tolerant bool) ([]policy.TenantID, error) {
	return parseCollection(raw, tolerant, "tenant id", p.ParseTenantID)
}

// ParseCloudInstanceID parses a raw cloud instance id. Empty or whitespace
// input is a failure regardless of tolerance.
func (p *Parser) ParseCloudInstanceID(raw string) (policy.CloudInstanceID, parseOutcome) {
	if strings.TrimSpace(raw) == "" {
		p.log.Warn().Msg("failed to parse cloud instance id: null or empty")
		return "", parseFailure
	}

	id, ok := policy.TryCreateCloudInstanceID(raw)
	if !ok {
		p.log.Warn().Str("value", raw).Msg("failed to parse cloud instance id")
		return "", parseFailure
	}

	return id, parseSuccess
}

// ParseSupportedCloudInstances parses the supported-cloud-instances
// collection. A nil or empty collection substitutes the "All" sentinel
// unless the fallback kill switch is set, in which case tolerant mode yields
// an empty result and strict mode errors.
func (p *Parser) ParseSupportedCloudInstances(raw []string, tolerant bool) ([]policy.CloudInstanceID, error) {
	if len(raw) == 0 {
		if !p.cloudFallbackDisabled {
			return []policy.CloudInstanceID{policy.CloudAll}, nil
		}

		if !tolerant {
			return nil, fmt.Errorf("%w: supported cloud instances collection was null or empty", ErrStrictParse)
		}

		p.log.Warn().Msg("supported cloud instances collection was null or empty")

		return nil, nil
	}

	return parseCollection(raw, tolerant, "cloud instance", p.ParseCloudInstanceID)
}

// ParseDeploymentLocation parses the deployment location. A failed parse
// substitutes "Public" unless the fallback kill switch is set, in which case
// tolerant mode yields the empty id and strict mode errors.
func (p *Parser) ParseDeploymentLocation(raw string, tolerant bool) (policy.CloudInstanceID, error) {
	id, outcome := p.ParseCloudInstanceID(raw)
	if outcome == parseSuccess {
		return id, nil
	}

	if !p.cloudFallbackDisabled {
		return policy.CloudPublic, nil
	}

	if !tolerant {
		return "", fmt.Errorf("%w: failed to parse %q as a deployment location", ErrStrictParse, raw)
	}

	return "", nil
}

// ParseReadinessState parses the agent readiness state. Empty or unparseable
// input defaults to ProdReady; in strict mode the default is an error.
func (p *Parser) ParseReadinessState(raw string, tolerant bool) (models.ReadinessState, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prodready":
		return models.ReadinessProdReady, nil
	case "testinprod":
		return models.ReadinessTestInProd, nil
	}

	p.log.Warn().Str("value", raw).Msg("failed to parse agent readiness state")

	if !tolerant {
		return models.ReadinessProdReady, fmt.Errorf("%w: failed to parse %q as a readiness state", ErrStrictParse, raw)
	}

	return models.ReadinessProdReady, nil
}

// PdmsSubjectOf maps a command subject into the feed taxonomy, the reverse
// direction of MapSubjectType.
func PdmsSubjectOf(subject models.Subject) models.PdmsSubjectType {
	switch subject.Kind {
	case models.SubjectAad:
		return models.PdmsSubjectAADUser
	case models.SubjectAad2:
		return models.PdmsSubjectAADUser2
	case models.SubjectMsa:
		return models.PdmsSubjectMSAUser
	case models.SubjectDemographic:
		return models.PdmsSubjectDemographicUser
	case models.SubjectMicrosoftEmployee:
		return models.PdmsSubjectMicrosoftEmployee
	case models.SubjectDevice:
		if subject.GlobalDeviceID != 0 {
			return models.PdmsSubjectWindows10Device
		}

		return models.PdmsSubjectDeviceOther
	case models.SubjectNonWindowsDevice:
		return models.PdmsSubjectNonWindowsDevice
	case models.SubjectEdgeBrowser:
		return models.PdmsSubjectEdgeBrowser
	default:
		return models.PdmsSubjectInvalid
	}
}

// parseCollection drives a multi-value parse: successes accumulate, ignored
// tokens are skipped, and failures either abort (strict) or are skipped
// (tolerant, already logged by the per-token parser).
func parseCollection[TIn any, TOut any](
	input []TIn,
	tolerant bool,
	kind string,
	parse func(TIn) (TOut, parseOutcome),
) ([]TOut, error) {
	output := make([]TOut, 0, len(input))

	for _, item := range input {
		value, outcome := parse(item)

		switch outcome {
		case parseSuccess:
			output = append(output, value)
		case parseIgnore:
		case parseFailure:
			if !tolerant {
				return nil, fmt.Errorf("%w: failed to parse %v as a %s", ErrStrictParse, item, kind)
			}
		}
	}

	return output, nil
}
