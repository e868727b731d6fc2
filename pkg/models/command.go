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

import (
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/privacyrouter/pkg/policy"
)

// Subject is the data subject a privacy command acts on. Kind selects which
// fields are meaningful; the remaining fields are zero.
type Subject struct {
	Kind SubjectType

	// TenantID is set for Aad and Aad2 subjects.
	TenantID policy.TenantID

	// HomeTenantID and TenantIDType are set only for Aad2 subjects.
	HomeTenantID policy.TenantID
	TenantIDType TenantIDType

	// GlobalDeviceID is set for Device subjects. A zero value means the
	// device is not a Windows 10 device.
	GlobalDeviceID int64
}

// PrivacyCommand is one data-subject-rights command under evaluation against
// an asset group. DataTypes is mutable: the applicability engine narrows it
// to the subset the asset group (and its variants) can act on.
type PrivacyCommand struct {
	CommandID     uuid.UUID
	Capability    CommandCapability
	Subject       Subject
	DataTypes     []policy.DataTypeID
	CloudInstance string
	CommandSource string
	Timestamp     time.Time

	// IsSyntheticTest marks commands injected by test tooling; they are
	// never routed to agents.
	IsSyntheticTest bool
}

// Clone returns a copy of the command with its own data type slice. Use it
// when one command is evaluated against multiple asset groups: evaluation
// narrows DataTypes in place, even on evaluations that are later rejected.
func (c *PrivacyCommand) Clone() *PrivacyCommand {
	clone := *c
	clone.DataTypes = append([]policy.DataTypeID(nil), c.DataTypes...)

	return &clone
}

// HasDataType reports whether the command currently carries the given data
// type.
func (c *PrivacyCommand) HasDataType(dt policy.DataTypeID) bool {
	for _, have := range c.DataTypes {
		if have == dt {
			return true
		}
	}

	return false
}

// RetainDataTypes narrows the command's data types to those present in keep.
// AccountClose and AgeOut commands carry no data types and are unaffected.
func (c *PrivacyCommand) RetainDataTypes(keep map[policy.DataTypeID]struct{}) {
	if len(c.DataTypes) == 0 {
		return
	}

	retained := c.DataTypes[:0]

	for _, dt := range c.DataTypes {
		if _, ok := keep[dt]; ok {
			retained = append(retained, dt)
		}
	}

	c.DataTypes = retained
}

// RemoveDataTypes drops every data type present in remove from the command.
func (c *PrivacyCommand) RemoveDataTypes(remove map[policy.DataTypeID]struct{}) {
	if len(c.DataTypes) == 0 {
		return
	}

	retained := c.DataTypes[:0]

	for _, dt := range c.DataTypes {
		if _, ok := remove[dt]; !ok {
			retained = append(retained, dt)
		}
	}

	c.DataTypes = retained
}
