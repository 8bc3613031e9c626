package upbit

import (
	"encoding/json"
	"fmt"
)

// APIError is an error response from the Upbit API.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upbit API error %d (%s): %s", e.StatusCode, e.Name, e.Message)
}

// IsRetryable reports whether the error is worth retrying (rate limits and
// server-side failures).
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

type apiErrorBody struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(status int, data []byte) error {
	var body apiErrorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Error.Message == "" {
		return &APIError{StatusCode: status, Name: "unknown", Message: string(data)}
	}
	return &APIError{StatusCode: status, Name: body.Error.Name, Message: body.Error.Message}
}
