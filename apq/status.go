package apq

import (
	"encoding/json"
	"net/http"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Response is the subset of a GraphQL response envelope the status mapper
// inspects.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors gqlerror.List   `json:"errors,omitempty"`
}

// StatusForResponse maps a response envelope to its final HTTP status. A
// persisted-query miss is a routine protocol step, not a failure: returning
// an error-class status would make strict clients and edge caches treat it
// as fatal instead of retrying with the full query, so the miss is reported
// as 202 Accepted. Every other response keeps the default status.
func StatusForResponse(resp *Response, defaultStatus int) int {
	if resp != nil && len(resp.Errors) > 0 && resp.Errors[0].Message == NotFoundMessage {
		return http.StatusAccepted
	}
	return defaultStatus
}

// StatusForBody applies StatusForResponse to a raw response body. Bodies
// that don't decode as a GraphQL envelope keep the default status.
func StatusForBody(body []byte, defaultStatus int) int {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return defaultStatus
	}
	return StatusForResponse(&resp, defaultStatus)
}
