package core

import (
	"encoding/json"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Pagination describes the page window the server returned for list
// responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the uniform response wrapper every Florin endpoint returns.
// Data stays raw until a caller decodes it into a concrete payload type.
type Envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Timestamp  string          `json:"timestamp"`
}

// DecodeEnvelope parses a response body into the uniform envelope. A body
// that is not a valid envelope is a protocol violation, not a transport
// failure, and is classified as an external error.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var envelope Envelope
	if len(body) == 0 {
		return envelope, nil
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Envelope{}, goerrors.Wrap(err, goerrors.CategoryExternal, "Malformed response envelope").
			WithTextCode(ClientErrorHTTP)
	}
	return envelope, nil
}

// DecodeData unmarshals an envelope's data payload into T.
func DecodeData[T any](envelope Envelope) (T, error) {
	var payload T
	if len(envelope.Data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return payload, fmt.Errorf("core: decode envelope data: %w", err)
	}
	return payload, nil
}
