package llm

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/news-digest/internal/schemas"
	"github.com/jonathan/news-digest/internal/types"
)

// Result is a validated AI response: either OK with a Value, or not OK with a Reason.
type Result[T any] struct {
	OK     bool
	Value  T
	Reason string
}

// Ok wraps an accepted value.
func Ok[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

// Reject records why a response was not accepted.
func Reject[T any](format string, args ...any) Result[T] {
	return Result[T]{Reason: fmt.Sprintf(format, args...)}
}

// Err returns a *types.ParseError for a rejected result and nil otherwise.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	return &types.ParseError{Message: r.Reason}
}

// DecodeJSON cleans raw, validates it against the named embedded schema (skipped
// when schemaName is empty) and unmarshals it into T.
func DecodeJSON[T any](raw, schemaName string) Result[T] {
	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		return Reject[T]("empty response")
	}

	if schemaName != "" {
		if err := schemas.Validate(schemaName, cleaned); err != nil {
			return Reject[T]("response does not match %s: %v", schemaName, err)
		}
	}

	var v T
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return Reject[T]("failed to parse response: %v (content: %s)", err, truncate(cleaned, 200))
	}
	return Ok(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
