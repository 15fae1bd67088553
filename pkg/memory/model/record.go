package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// MemoryRecord represents a stored personal memory. The retrieval engine
// treats records as read-only: identifiers are stable for the record's
// lifetime and dynamic fields may grow over time but existing keys are never
// silently removed.
type MemoryRecord struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	DynamicFields map[string]any `json:"dynamic_fields,omitempty"`
	Embedding     []float32      `json:"embedding,omitempty"`
	ContentHash   string         `json:"content_hash,omitempty"`
	Score         float64        `json:"score"`
	CreatedAt     time.Time      `json:"created_at"`
}

// HashContent returns the SHA-256 hex digest used for content deduplication.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Preview returns a short excerpt of the content, cut at a word boundary
// when one falls in the final third of the window.
func (r MemoryRecord) Preview(maxLength int) string {
	if r.Content == "" || maxLength <= 0 {
		return ""
	}
	if len(r.Content) <= maxLength {
		return r.Content
	}
	preview := r.Content[:maxLength]
	if idx := strings.LastIndex(preview, " "); idx > (maxLength*2)/3 {
		preview = preview[:idx]
	}
	return preview + "..."
}

// Field returns a dynamic field value, or nil when absent.
func (r MemoryRecord) Field(name string) any {
	if r.DynamicFields == nil {
		return nil
	}
	return r.DynamicFields[name]
}
