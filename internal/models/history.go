package models

import "time"

// HistoryStorageKey is the fixed key the local history list is stored under.
const HistoryStorageKey = "humanization_history"

// History retention limits.
const (
	HistoryMaxItems = 10
	HistoryTTL      = time.Hour
)

// HistoryItem is one past humanization kept by the caller, never by the
// server.
type HistoryItem struct {
	ID            string    `json:"id"`
	OriginalText  string    `json:"original_text"`
	HumanizedText string    `json:"humanized_text"`
	Tone          Tone      `json:"tone"`
	Intensity     int       `json:"intensity"`
	AIScore       *int      `json:"ai_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// Expired reports whether the item is older than HistoryTTL at now.
func (h HistoryItem) Expired(now time.Time) bool {
	return now.Sub(h.CreatedAt) >= HistoryTTL
}
