package provider

import (
	"encoding/json"
	"errors"
)

// ErrNotConfigured is returned when provider API credentials are absent from
// server configuration.
var ErrNotConfigured = errors.New("provider: missing provider configuration")

// decodeAPIError builds an Error from a non-2xx provider response, trying the
// known envelope field paths in order and falling back to a generic message
// when the shape is unrecognized.
func decodeAPIError(status int, body []byte) *Error {
	message := "request failed"
	var envelope struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case len(envelope.Errors) > 0 && envelope.Errors[0].Message != "":
			message = envelope.Errors[0].Message
		case envelope.Message != "":
			message = envelope.Message
		case envelope.Error != "":
			message = envelope.Error
		case envelope.Msg != "":
			message = envelope.Msg
		}
	}
	return &Error{StatusCode: status, Message: message}
}
