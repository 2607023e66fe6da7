// Package docs loads the static API definition and makes it available to
// the Swagger UI.
package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

const (
	// InstanceName is the swag registry name the UI reads the definition from.
	InstanceName = "shopfront"
	// DefaultPath is where the definition lives relative to the working directory.
	DefaultPath = "docs/swagger.yaml"
)

// Document is a loaded API definition, held as JSON.
type Document struct {
	raw     []byte
	Version string
}

// ReadDoc returns the definition as JSON. It satisfies swag.Swagger.
func (d *Document) ReadDoc() string {
	return string(d.raw)
}

// JSON returns a copy of the definition.
func (d *Document) JSON() []byte {
	return append([]byte(nil), d.raw...)
}

// Load reads a YAML or JSON definition from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read API definition: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid API definition %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML or JSON definition. It must be a mapping with a
// "swagger" or "openapi" version key.
func Parse(data []byte) (*Document, error) {
	var tree interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	root, ok := normalize(tree).(map[string]interface{})
	if !ok {
		return nil, errors.New("definition is not a mapping")
	}

	var version string
	for _, key := range []string{"swagger", "openapi"} {
		if v, ok := root[key]; ok {
			version = fmt.Sprint(v)
			break
		}
	}
	if version == "" {
		return nil, errors.New(`definition has no "swagger" or "openapi" version`)
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return nil, err
	}
	return &Document{raw: raw, Version: version}, nil
}

// normalize converts YAML mappings with non-string keys (response codes)
// into JSON-compatible maps.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []interface{}:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// registry is registered with swag once and serves whichever document was
// registered last.
type registry struct {
	current atomic.Pointer[Document]
}

func (r *registry) ReadDoc() string {
	if doc := r.current.Load(); doc != nil {
		return doc.ReadDoc()
	}
	return "{}"
}

var (
	registered   registry
	registerOnce sync.Once
)

// Register publishes doc under InstanceName. Registering again replaces
// the document.
func Register(doc *Document) {
	registered.current.Store(doc)
	registerOnce.Do(func() {
		swag.Register(InstanceName, &registered)
	})
}
