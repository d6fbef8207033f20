// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxTextLength is the longest task text a store accepts, in characters.
const MaxTextLength = 500

// ID identifies a task within one store.
// Integer ids (SQLite, REST) and opaque ids (UUIDs, Google Tasks) share this type.
type ID string

// IntID returns the ID for an integer key.
func IntID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Int returns the integer form of the id, if it has one.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// MarshalJSON encodes integer ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	// Only canonical integers ("7", not "007" or "+7") round-trip as numbers.
	if n, ok := id.Int(); ok && IntID(n) == id {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("id must be an integer: %s", n)
	}
	*id = ID(n.String())
	return nil
}

// Task represents a single to-do entry.
type Task struct {
	ID        ID     `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// NormalizeText trims task text and checks it can be persisted.
// Returns the trimmed text or a *ValidationError.
func NormalizeText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxTextLength {
		return "", &ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("must be at most %d characters", MaxTextLength),
		}
	}
	return trimmed, nil
}

// Find returns the task with the given id from tasks.
func Find(tasks []Task, id ID) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
