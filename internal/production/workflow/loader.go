package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaFileName is the JSON Schema every definition is validated against
const SchemaFileName = "workflow.schema.json"

// definitionFiles maps product types to their workflow definition files.
// Yoghurt and mala share a definition, mirroring the fermentation line.
var definitionFiles = map[ProductType]string{
	ProductTypeFreshMilk: "fresh_milk_workflow.json",
	ProductTypeYoghurt:   "yoghurt_mala_workflow.json",
	ProductTypeMala:      "yoghurt_mala_workflow.json",
	ProductTypeCheese:    "cheese_workflow.json",
}

// Loader loads and validates workflow definitions from a directory
type Loader struct {
	dir    string
	schema *jsonschema.Schema

	mu    sync.RWMutex
	cache map[ProductType]*Definition
}

// NewLoader creates a Loader rooted at dir and compiles the definition schema
func NewLoader(dir string) (*Loader, error) {
	schemaPath := filepath.Join(dir, SchemaFileName)
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow schema %s: %w", schemaPath, err)
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("workflow://schema", doc); err != nil {
		return nil, fmt.Errorf("failed to register workflow schema: %w", err)
	}

	schema, err := compiler.Compile("workflow://schema")
	if err != nil {
		return nil, fmt.Errorf("failed to compile workflow schema: %w", err)
	}

	return &Loader{
		dir:    dir,
		schema: schema,
		cache:  make(map[ProductType]*Definition),
	}, nil
}

// LoadWorkflow loads the definition for a product type.
// Definitions are schema-validated and metric-checked once, then cached.
func (l *Loader) LoadWorkflow(productType ProductType) (*Definition, error) {
	l.mu.RLock()
	if def, ok := l.cache[productType]; ok {
		l.mu.RUnlock()
		return def, nil
	}
	l.mu.RUnlock()

	fileName, ok := definitionFiles[productType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProductType, productType)
	}

	path := filepath.Join(l.dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, path)
		}
		return nil, fmt.Errorf("failed to read workflow definition %s: %w", path, err)
	}

	def, err := l.parse(data)
	if err != nil {
		return nil, fmt.Errorf("workflow definition %s: %w", fileName, err)
	}

	l.mu.Lock()
	l.cache[productType] = def
	l.mu.Unlock()

	return def, nil
}

// LoadAll loads every registered definition, failing on the first invalid one
func (l *Loader) LoadAll() (map[ProductType]*Definition, error) {
	defs := make(map[ProductType]*Definition, len(definitionFiles))
	for _, productType := range SupportedProductTypes() {
		def, err := l.LoadWorkflow(productType)
		if err != nil {
			return nil, err
		}
		defs[productType] = def
	}
	return defs, nil
}

// parse validates raw definition bytes against the schema and the metric table
func (l *Loader) parse(data []byte) (*Definition, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	if err := l.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	for _, stage := range def.Stages {
		for _, cond := range stage.Conditions {
			if !cond.Type.IsValid() {
				return nil, fmt.Errorf("%w: stage %s condition type %s",
					ErrInvalidDefinition, stage.Key, cond.Type)
			}
			if _, ok := RequirementTypeForMetric(cond.Metric); !ok {
				return nil, fmt.Errorf("%w: stage %s metric %s",
					ErrUnknownMetric, stage.Key, cond.Metric)
			}
		}
	}

	return &def, nil
}

// DefinitionFile returns the file name backing a product type
func DefinitionFile(productType ProductType) (string, bool) {
	f, ok := definitionFiles[productType]
	return f, ok
}
