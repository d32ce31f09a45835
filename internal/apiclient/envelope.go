package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNoData = errors.New("envelope carries no data")

// Envelope is the response body every JSON endpoint of the SIS API returns.
// Callers branch on Success; Data is only meaningful when Success is true.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Code    int                 `json:"code,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Decode unmarshals Data into v.
func (e *Envelope) Decode(v any) error {
	if e == nil || len(e.Data) == 0 || bytes.Equal(bytes.TrimSpace(e.Data), []byte("null")) {
		return ErrNoData
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// wireEnvelope distinguishes an absent success field from an explicit false.
type wireEnvelope struct {
	Success *bool               `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Code    int                 `json:"code"`
	Errors  map[string][]string `json:"errors"`
}

// parseEnvelope returns ok=false when body is not a JSON object.
func parseEnvelope(body []byte) (*Envelope, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var w wireEnvelope
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, false
	}
	env := &Envelope{
		Success: w.Success == nil || *w.Success,
		Message: w.Message,
		Data:    w.Data,
		Code:    w.Code,
		Errors:  w.Errors,
	}
	return env, true
}
