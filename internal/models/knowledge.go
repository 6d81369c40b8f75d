package models

import (
	"time"
)

// KnowledgeExample is one curated {anomaly description -> ideal narrative}
// pair used as an in-context example for the model. Rows are never updated;
// they are created and deleted by id.
type KnowledgeExample struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Input     string    `json:"input" gorm:"type:text;not null"`
	Output    string    `json:"output" gorm:"type:text;not null"`
	CreatedBy *uint     `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (KnowledgeExample) TableName() string {
	return "knowledge_examples"
}
