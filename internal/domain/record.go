package domain

import "time"

// Properties are the values derived from a string at creation time.
type Properties struct {
	Length             int            `json:"length"`
	IsPalindrome       bool           `json:"is_palindrome"`
	UniqueCharacters   int            `json:"unique_characters"`
	WordCount          int            `json:"word_count"`
	ContentHash        string         `json:"content_hash"`
	CharacterFrequency map[string]int `json:"character_frequency"`
}

// AnalyzedRecord is a stored string together with its derived properties.
// Records are never updated in place; a new value produces a new record.
type AnalyzedRecord struct {
	ID         string     `json:"id"`
	Value      string     `json:"value"`
	Properties Properties `json:"properties"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RecordEventType distinguishes the mutations published on the event stream.
type RecordEventType string

const (
	RecordCreated RecordEventType = "created"
	RecordDeleted RecordEventType = "deleted"
)

// RecordEvent describes a successful mutation of the record store.
type RecordEvent struct {
	Type            RecordEventType `json:"type"`
	Record          AnalyzedRecord  `json:"record"`
	OccurredAt      time.Time       `json:"occurred_at"`
	StreamMessageID string          `json:"-"` // Redis stream message id, set by consumers
}
