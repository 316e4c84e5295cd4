// internal/models/query_types.go
package models

type QueryType string

// PostgreSQL read queries.
const (
	QueryTypeFacilityDetails      QueryType = "facility_details"
	QueryTypeFacilitiesByIDs      QueryType = "facilities_by_ids"
	QueryTypeFacilityAvailability QueryType = "facility_availability"
	QueryTypeResidentMedications  QueryType = "resident_medications"
)

// Elasticsearch queries.
const (
	QueryTypeFacilitySearch    QueryType = "facility_search"
	QueryTypeSimilarFacilities QueryType = "similar_facilities"
)
