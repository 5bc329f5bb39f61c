package feed

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nhle/milkfeed/internal/model"
)

// Payload is the decoded body of a push event.
type Payload struct {
	Message string
	Kind    model.Kind
}

// wirePayload is the JSON shape sent by the backend: {"message": "...", "type": "..."}.
type wirePayload struct {
	Message *string `json:"message"`
	Type    string  `json:"type,omitempty"`
}

// DecodeError reports a push payload that could not be turned into a
// notification. Such payloads are dropped.
type DecodeError struct {
	Payload []byte
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decoding payload: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err (or any error in its chain) is a DecodeError.
func IsDecodeError(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// Decode parses a raw push payload. The message field is required and
// must not be blank; an unknown type falls back to info.
func Decode(raw []byte) (Payload, error) {
	var wp wirePayload
	if err := json.Unmarshal(raw, &wp); err != nil {
		return Payload{}, &DecodeError{Payload: raw, Reason: "invalid json", Err: err}
	}
	if wp.Message == nil {
		return Payload{}, &DecodeError{Payload: raw, Reason: "missing message"}
	}
	msg := strings.TrimSpace(*wp.Message)
	if msg == "" {
		return Payload{}, &DecodeError{Payload: raw, Reason: "empty message"}
	}

	return Payload{
		Message: msg,
		Kind:    model.ParseKind(wp.Type),
	}, nil
}

// Encode builds a wire payload. Sources that do not receive JSON (the
// mailbox) use it so every transport goes through Decode.
func Encode(p Payload) ([]byte, error) {
	msg := p.Message
	data, err := json.Marshal(wirePayload{Message: &msg, Type: string(p.Kind)})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}
