// Package policy holds the shared catalogs of privacy data types, cloud
// instances, and tenant identifiers referenced by asset group metadata.
package policy

import (
	"strings"

	"github.com/google/uuid"
)

// DataTypeID identifies one privacy data type from the shared taxonomy.
type DataTypeID string

// DataTypeAny is the wildcard data type: an asset group declaring it accepts
// commands for every data type.
const DataTypeAny DataTypeID = "Any"

// Known data type ids. The catalog is closed: unknown strings fail to parse.
const (
	DataTypeBrowsingHistory                DataTypeID = "BrowsingHistory"
	DataTypeSearchRequestsAndQuery         DataTypeID = "SearchRequestsAndQuery"
	DataTypeContentConsumption             DataTypeID = "ContentConsumption"
	DataTypeProductAndServiceUsage         DataTypeID = "ProductAndServiceUsage"
	DataTypeProductAndServicePerformance   DataTypeID = "ProductAndServicePerformance"
	DataTypeInkingTypingAndSpeechUtterance DataTypeID = "InkingTypingAndSpeechUtterance"
	DataTypePreciseUserLocation            DataTypeID = "PreciseUserLocation"
	DataTypeCustomerContact                DataTypeID = "CustomerContact"
	DataTypeCredentials                    DataTypeID = "Credentials"
	DataTypeDeviceConnectivityAndConfig    DataTypeID = "DeviceConnectivityAndConfiguration"
	DataTypeFitnessAndActivity             DataTypeID = "FitnessAndActivity"
	DataTypeInterestsAndFavorites          DataTypeID = "InterestsAndFavorites"
	DataTypeSupportContent                 DataTypeID = "SupportContent"
	DataTypeSupportInteraction             DataTypeID = "SupportInteraction"
	DataTypeEnvironmentalSensor            DataTypeID = "EnvironmentalSensor"
)

var dataTypes = buildIndex([]string{
	string(DataTypeAny),
	string(DataTypeBrowsingHistory),
	string(DataTypeSearchRequestsAndQuery),
	string(DataTypeContentConsumption),
	string(DataTypeProductAndServiceUsage),
	string(DataTypeProductAndServicePerformance),
	string(DataTypeInkingTypingAndSpeechUtterance),
	string(DataTypePreciseUserLocation),
	string(DataTypeCustomerContact),
	string(DataTypeCredentials),
	string(DataTypeDeviceConnectivityAndConfig),
	string(DataTypeFitnessAndActivity),
	string(DataTypeInterestsAndFavorites),
	string(DataTypeSupportContent),
	string(DataTypeSupportInteraction),
	string(DataTypeEnvironmentalSensor),
})

// TryCreateDataTypeID resolves a raw string to a canonical DataTypeID,
// case-insensitively.
func TryCreateDataTypeID(raw string) (DataTypeID, bool) {
	canonical, ok := dataTypes[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", false
	}

	return DataTypeID(canonical), true
}

// CloudInstanceID identifies one cloud instance (sovereign cloud) from the
// shared catalog.
type CloudInstanceID string

const (
	// CloudAll is the sentinel meaning "every cloud instance".
	CloudAll CloudInstanceID = "All"

	// CloudPublic is the worldwide public cloud.
	CloudPublic CloudInstanceID = "Public"

	CloudUSFairfax  CloudInstanceID = "US.Azure.Fairfax"
	CloudCNMooncake CloudInstanceID = "CN.Azure.Mooncake"
	CloudEU         CloudInstanceID = "EU"
)

var cloudInstances = buildIndex([]string{
	string(CloudAll),
	string(CloudPublic),
	string(CloudUSFairfax),
	string(CloudCNMooncake),
	string(CloudEU),
})

// TryCreateCloudInstanceID resolves a raw string to a canonical
// CloudInstanceID, case-insensitively.
func TryCreateCloudInstanceID(raw string) (CloudInstanceID, bool) {
	canonical, ok := cloudInstances[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", false
	}

	return CloudInstanceID(canonical), true
}

// TenantID is an AAD tenant identifier.
type TenantID = uuid.UUID

// ParseTenantID parses a raw tenant id string.
func ParseTenantID(raw string) (TenantID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}

	return id, true
}

// buildIndex maps lower-cased aliases to their canonical spelling.
func buildIndex(values []string) map[string]string {
	index := make(map[string]string, len(values))
	for _, v := range values {
		index[strings.ToLower(v)] = v
	}

	return index
}
