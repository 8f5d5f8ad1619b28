package pipeline

import (
	"encoding/json"
	"net/http"
	"time"
)

// Outcome is the structured result of one run.
type Outcome struct {
	Pipeline   string
	CountKey   string
	Success    bool
	Message    string
	ItemCount  int
	RowsLoaded int64
	JobID      string
	Duration   time.Duration
	State      State
	Err        error
}

// Empty reports a successful run that found nothing to load.
func (o Outcome) Empty() bool {
	return o.Success && o.JobID == "" && o.ItemCount == 0
}

// StatusCode is the HTTP status an invocation surface should answer with.
func (o Outcome) StatusCode() int {
	switch {
	case o.Success:
		return http.StatusOK
	case KindOf(o.Err) == KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MarshalJSON renders the invocation response body. Duration is in
// milliseconds.
func (o Outcome) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"success":  o.Success,
		"duration": o.Duration.Milliseconds(),
	}
	switch {
	case !o.Success:
		body["error"] = o.Message
	case o.Empty():
		body["message"] = o.Message
		body[o.CountKey] = 0
	default:
		body["message"] = o.Message
		body[o.CountKey] = o.ItemCount
		body["rowsLoaded"] = o.RowsLoaded
		body["jobId"] = o.JobID
	}
	return json.Marshal(body)
}
