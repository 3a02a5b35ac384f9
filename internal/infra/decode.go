package infra

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// DecodeError is returned when a payload is empty or not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeJSON unmarshals data into dest. Empty, truncated or otherwise
// broken bodies are rejected with a *DecodeError so the caller can retry
// the request.
func DecodeJSON(data []byte, dest any) error {
	if err := ValidateJSON(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// ValidateJSON returns a *DecodeError unless data is a complete JSON
// document.
func ValidateJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &DecodeError{Err: fmt.Errorf("empty body")}
	}
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		if err == nil {
			err = fmt.Errorf("invalid JSON")
		}
		return &DecodeError{Err: err}
	}
	return nil
}

// RepairJSON returns data unchanged when it is valid JSON and a repaired
// copy otherwise (trailing commas, single quotes, cut-off bodies). Only
// for single-value payloads where a partial document is still usable;
// statement and quote bodies go through DecodeJSON or ValidateJSON.
func RepairJSON(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty body")}
	}
	if json.Valid(data) {
		return data, nil
	}
	repaired, err := jsonrepair.RepairJSON(string(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return []byte(repaired), nil
}
