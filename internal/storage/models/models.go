package models

import (
	"encoding/json"
	"time"
)

// Item is one enriched record. DetailedSkills holds the serialized
// extraction schema for ItemType, or "{}" when extraction never ran.
type Item struct {
	ID              string
	ItemType        string
	Title           string
	URL             string
	Payload         json.RawMessage
	ExtractedSkills []string
	DetailedSkills  json.RawMessage
	HasDetailed     bool
	CreatedAt       time.Time
}

type ItemFilter struct {
	ItemType string
	Since    time.Time
	Limit    int
}
