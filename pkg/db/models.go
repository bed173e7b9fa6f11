package db

import "time"

// DomainMapping represents a row in the domain_mappings table.
type DomainMapping struct {
	Domain         string    `json:"domain"`
	PrimaryType    *string   `json:"primary_type,omitempty"`
	SuggestedTypes []string  `json:"suggested_types"`
	Description    *string   `json:"description,omitempty"`
	Revision       int       `json:"revision"`
	Created        time.Time `json:"created"`
	CreatedBy      string    `json:"created_by"`
	Modified       time.Time `json:"modified"`
	ModifiedBy     string    `json:"modified_by"`
}

// UpsertDomainMappingParams holds parameters for UpsertDomainMapping.
type UpsertDomainMappingParams struct {
	Domain         string
	PrimaryType    string
	SuggestedTypes []string
	Description    string
	UserID         string
}
