package oracle

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaPrinter = message.NewPrinter(language.English)

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// schemaFor compiles (and caches) the embedded schema for a task.
func schemaFor(task string) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if sch, ok := schemaCache[task]; ok {
		return sch, nil
	}

	raw, err := schemaFS.ReadFile("schemas/" + task + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("no schema for task %q: %w", task, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("embedded schema for %q is not valid JSON: %w", task, err)
	}

	name := task + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource for %q: %w", task, err)
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %q: %w", task, err)
	}
	schemaCache[task] = sch
	return sch, nil
}

// validateInstance checks a decoded value against the schema and returns the
// flattened validation messages.
func validateInstance(sch *jsonschema.Schema, instance any) []string {
	err := sch.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var msgs []string
	collectCauses(ve, &msgs)
	return msgs
}

func collectCauses(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*msgs = append(*msgs, loc+": "+ve.ErrorKind.LocalizedString(schemaPrinter))
		return
	}
	for _, cause := range ve.Causes {
		collectCauses(cause, msgs)
	}
}
