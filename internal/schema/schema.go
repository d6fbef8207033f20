// Package schema validates task collection documents against the
// embedded JSON Schema before they are decoded into tasks.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo/internal/service"
)

//go:embed tasks.schema.json
var tasksSchema string

const tasksSchemaURL = "tasks.schema.json"

var compiled = jsonschema.MustCompileString(tasksSchemaURL, tasksSchema)

// DecodeTasks validates data as a task collection and decodes it.
// what names the document in errors ("data file", "import").
// Every failure is a *service.DecodeError.
func DecodeTasks(data []byte, what string) ([]service.Task, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &service.DecodeError{What: what, Err: err}
	}
	if dec.More() {
		return nil, &service.DecodeError{What: what, Err: fmt.Errorf("unexpected data after top-level value")}
	}

	if err := compiled.Validate(doc); err != nil {
		return nil, &service.DecodeError{What: what, Err: flatten(err)}
	}

	var tasks []service.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, &service.DecodeError{What: what, Err: err}
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// flatten reduces a schema validation tree to its first leaf, with the
// instance location rendered as a path like [2].text.
func flatten(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	path := jsonPointerToPath(ve.InstanceLocation)
	if path == "" {
		return fmt.Errorf("%s", ve.Message)
	}
	return fmt.Errorf("%s: %s", path, ve.Message)
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
