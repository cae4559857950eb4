package middleware

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	contextutils "borneo/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, one per embedded file
const (
	SchemaSessionInput = "session_input"
	SchemaLanguages    = "languages"
	SchemaTranslate    = "translate"
	SchemaModerate     = "moderate"
	SchemaFacts        = "facts"
	SchemaSpeech       = "speech"
	SchemaCredentials  = "credentials"
	SchemaAdminLogin   = "admin_login"
	SchemaWSMessage    = "ws_message"
)

// SchemaLoader holds compiled JSON schemas for request bodies
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader creates an empty schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadSchemas compiles every *.json file of fsys, keyed by file name without extension
func (sl *SchemaLoader) LoadSchemas(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return contextutils.WrapError(err, "failed to read schema directory")
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to read schema %s", entry.Name())
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to compile schema %s", entry.Name())
		}
		sl.schemas[strings.TrimSuffix(entry.Name(), ".json")] = schema
	}
	return nil
}

// Names lists the loaded schemas
func (sl *SchemaLoader) Names() []string {
	names := make([]string, 0, len(sl.schemas))
	for name := range sl.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateBytes validates a JSON document against a schema. Violations are
// reported as VALIDATION_FAILED with one detail per field.
func (sl *SchemaLoader) ValidateBytes(data []byte, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.Newf(contextutils.ErrInternalError, "schema %s not found", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "request body is not valid JSON: %v", err)
	}

	if !result.Valid() {
		validationErrors := make([]string, 0, len(result.Errors()))
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"Request data does not match the request schema", strings.Join(validationErrors, "; "))
	}

	return nil
}

// LoadEmbeddedSchemas returns a loader with the request schemas compiled into the binary
func LoadEmbeddedSchemas() (*SchemaLoader, error) {
	loader := NewSchemaLoader()
	if err := loader.LoadSchemas(schemaFS, "schemas"); err != nil {
		return nil, err
	}
	return loader, nil
}
