package models

import (
	"time"

	"gorm.io/datatypes"
)

// VehicleMetadata is the optional make/model/year a manual belongs to.
// All fields may be empty; a manual does not have to be tied to a vehicle.
type VehicleMetadata struct {
	Make  string `gorm:"size:64" json:"make,omitempty"`
	Model string `gorm:"size:64" json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// Document is an ingested manual. Processed is true only when the full chunk
// set was persisted in the same transaction; readers must never observe a
// document with some-but-not-all chunks.
type Document struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	Name            string          `gorm:"not null;size:255" json:"name"`
	Vehicle         VehicleMetadata `gorm:"embedded;embeddedPrefix:vehicle_" json:"vehicle"`
	UploadedAt      time.Time       `json:"uploaded_at"`
	PageCount       int             `json:"page_count"`
	FullText        string          `gorm:"type:longtext" json:"-"`
	Processed       bool            `gorm:"not null;default:false" json:"processed"`
	ProcessingError string          `gorm:"size:1024" json:"processing_error,omitempty"`

	Chunks []Chunk `gorm:"foreignKey:DocumentID" json:"chunks,omitempty"`
}

// Chunk is a bounded, citable passage of a document. Position is the 0-based
// index in document-wide emission order. PageNumbers is ascending and
// deduplicated; it may be empty when page attribution found no match.
type Chunk struct {
	ID             string                       `gorm:"primaryKey;size:36" json:"id"`
	DocumentID     string                       `gorm:"index;not null;size:36" json:"document_id"`
	Content        string                       `gorm:"type:text;not null" json:"content"`
	PageNumbers    datatypes.JSONSlice[int]     `json:"page_numbers,omitempty"`
	Position       int                          `gorm:"not null" json:"position"`
	TokenCount     int                          `json:"token_count"`
	SectionHeading string                       `gorm:"size:255" json:"section_heading,omitempty"`
	Keywords       datatypes.JSONSlice[string]  `json:"keywords,omitempty"`
	Embedding      datatypes.JSONSlice[float32] `json:"-"`
}

// ApproxTokens estimates the token count of a piece of content. Four
// characters per token is the sizing rule used throughout the pipeline.
func ApproxTokens(content string) int {
	return len(content) / 4
}

// QueryRecord is one answered question. It exists only for successful
// generations; every pipeline failure leaves no record behind. Deleting the
// owning document deletes its records.
type QueryRecord struct {
	ID            string                      `gorm:"primaryKey;size:36" json:"id"`
	DocumentID    string                      `gorm:"index;not null;size:36" json:"document_id"`
	Query         string                      `gorm:"type:text;not null" json:"query"`
	Answer        string                      `gorm:"type:text;not null" json:"answer"`
	SourcePages   datatypes.JSONSlice[int]    `json:"source_pages,omitempty"`
	Confidence    string                      `gorm:"size:16" json:"confidence"`
	FollowUps     datatypes.JSONSlice[string] `json:"suggested_follow_ups,omitempty"`
	MeanRelevance float64                     `json:"mean_relevance"`
	CreatedAt     time.Time                   `json:"created_at"`

	// Evidence is the chunk set the answer was grounded on.
	Evidence []Chunk `gorm:"many2many:query_record_chunks" json:"evidence,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

func (Chunk) TableName() string {
	return "chunks"
}

func (QueryRecord) TableName() string {
	return "query_records"
}
