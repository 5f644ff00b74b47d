package models

import "time"

// ChatTurn is one question/answer exchange kept locally for session history.
// Analytics enrichment lives in OpenSearch; this table only backs the
// chat history endpoint.
type ChatTurn struct {
	ID        string
	SessionID string
	Question  string
	Answer    string
	LatencyMS int
	FlowID    string
	CreatedAt time.Time
}
