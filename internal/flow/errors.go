package flow

import "fmt"

// UpstreamError reports a failed flow-execution call. StatusCode is the HTTP
// status the caller should propagate; transport and body-shape failures use
// 502.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("flow upstream error (status %d): %s", e.StatusCode, e.Message)
}
