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

// Package qualifier parses and compares hierarchical asset qualifiers.
//
// A qualifier is a semicolon-delimited list of key=value segments, e.g.
// "AssetType=AzureTable;AccountName=abcd;TableName=efgh". Keys are
// case-insensitive; values are compared exactly after whitespace trimming.
package qualifier

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var errEmptySegment = errors.New("qualifier segment has no '=' separator")

// Qualifier is the parsed form of an asset qualifier string. The zero value
// (or a Qualifier parsed from an empty string) is the empty qualifier: it
// equals and contains only another empty qualifier.
type Qualifier struct {
	pairs map[string]string
}

// Parse converts a raw qualifier string into a Qualifier. An empty or blank
// raw string parses to the empty qualifier. Any non-empty segment without an
// '=' separator is an error.
func Parse(raw string) (Qualifier, error) {
	if strings.TrimSpace(raw) == "" {
		return Qualifier{}, nil
	}

	pairs := make(map[string]string)

	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, found := strings.Cut(segment, "=")
		if !found {
			return Qualifier{}, fmt.Errorf("%w: %q", errEmptySegment, segment)
		}

		key = strings.ToLower(strings.TrimSpace(key))
		pairs[key] = strings.TrimSpace(value)
	}

	if len(pairs) == 0 {
		return Qualifier{}, fmt.Errorf("qualifier %q contained no key=value segments", raw)
	}

	return Qualifier{pairs: pairs}, nil
}

// MustParse is Parse for literals known to be well formed; it panics on error.
func MustParse(raw string) Qualifier {
	q, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return q
}

// IsEmpty reports whether the qualifier has no key/value pairs.
func (q Qualifier) IsEmpty() bool {
	return len(q.pairs) == 0
}

// Len returns the number of key/value pairs.
func (q Qualifier) Len() int {
	return len(q.pairs)
}

// Value returns the value stored for the given key (case-insensitive).
func (q Qualifier) Value(key string) (string, bool) {
	v, ok := q.pairs[strings.ToLower(key)]
	return v, ok
}

// Equal reports whether both qualifiers have identical key sets and values.
func (q Qualifier) Equal(other Qualifier) bool {
	if len(q.pairs) != len(other.pairs) {
		return false
	}

	for k, v := range q.pairs {
		if ov, ok := other.pairs[k]; !ok || ov != v {
			return false
		}
	}

	return true
}

// Contains reports whether every key/value pair of q is present in other,
// i.e. other is equal to or more specific than q. Containment is reflexive
// and transitive but not symmetric. The empty qualifier contains (and is
// contained by) only another empty qualifier.
func (q Qualifier) Contains(other Qualifier) bool {
	if q.IsEmpty() || other.IsEmpty() {
		return q.IsEmpty() && other.IsEmpty()
	}

	if len(q.pairs) > len(other.pairs) {
		return false
	}

	for k, v := range q.pairs {
		if ov, ok := other.pairs[k]; !ok || ov != v {
			return false
		}
	}

	return true
}

// String renders the qualifier in normalized key=value;... form with keys
// sorted, so equal qualifiers always render identically.
func (q Qualifier) String() string {
	if q.IsEmpty() {
		return ""
	}

	keys := make([]string, 0, len(q.pairs))
	for k := range q.pairs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var sb strings.Builder

	for _, k := range keys {
		if sb.Len() > 0 {
			sb.WriteByte(';')
		}

		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(q.pairs[k])
	}

	return sb.String()
}
