// internal/workers/data-access/query-postgresql/models.go
package querypostgresql

import "afh-workers/internal/models"

type Input struct {
	QueryType   string   `json:"queryType"`
	FacilityID  string   `json:"facilityId,omitempty"`
	FacilityIDs []string `json:"facilityIds,omitempty"`
	ResidentID  string   `json:"residentId,omitempty"`
	Month       string   `json:"month,omitempty"` // YYYY-MM
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType
