package apispec

import (
	"fmt"
	"strings"

	"folio/internal/domain"

	"gopkg.in/yaml.v3"
)

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// Spec is the subset of an OpenAPI 3 document the importer needs, with tags
// and operations in document order.
type Spec struct {
	Title string
	Tags  []*Tag
}

// Tag groups the operations whose first tag is Name.
type Tag struct {
	Name       string
	Operations []Operation
}

// Operation is one method on one path.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Parameters  []Parameter
}

type Parameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required"`
}

func (o Operation) title() string {
	if s := strings.TrimSpace(o.Summary); s != "" {
		return s
	}
	return o.Method + " " + o.Path
}

func (s *Spec) operationCount() int {
	n := 0
	for _, t := range s.Tags {
		n += len(t.Operations)
	}
	return n
}

type document struct {
	OpenAPI string `yaml:"openapi"`
	Info    struct {
		Title string `yaml:"title"`
	} `yaml:"info"`
	Tags []struct {
		Name string `yaml:"name"`
	} `yaml:"tags"`
	Paths yaml.Node `yaml:"paths"`
}

type rawOperation struct {
	OperationID string      `yaml:"operationId"`
	Summary     string      `yaml:"summary"`
	Description string      `yaml:"description"`
	Tags        []string    `yaml:"tags"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parse decodes an OpenAPI 3 document in YAML or JSON. Declared tags keep
// their declared order; undeclared ones follow in order of first use.
// Operations without tags go under "default".
func Parse(data []byte) (*Spec, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid OpenAPI document: %v", domain.ErrValidation, err)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		return nil, fmt.Errorf("%w: unsupported OpenAPI version %q", domain.ErrValidation, doc.OpenAPI)
	}

	spec := &Spec{Title: strings.TrimSpace(doc.Info.Title)}
	byName := map[string]*Tag{}
	tagFor := func(name string) *Tag {
		if t, ok := byName[name]; ok {
			return t
		}
		t := &Tag{Name: name}
		byName[name] = t
		spec.Tags = append(spec.Tags, t)
		return t
	}
	for _, t := range doc.Tags {
		if name := strings.TrimSpace(t.Name); name != "" {
			tagFor(name)
		}
	}

	if doc.Paths.Kind != 0 && doc.Paths.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: paths must be a mapping", domain.ErrValidation)
	}
	for i := 0; i+1 < len(doc.Paths.Content); i += 2 {
		path := doc.Paths.Content[i].Value
		item := doc.Paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			method := strings.ToLower(item.Content[j].Value)
			if !httpMethods[method] {
				continue
			}
			var raw rawOperation
			if err := item.Content[j+1].Decode(&raw); err != nil {
				return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrValidation, method, path, err)
			}

			tag := defaultTag
			if len(raw.Tags) > 0 && strings.TrimSpace(raw.Tags[0]) != "" {
				tag = strings.TrimSpace(raw.Tags[0])
			}
			t := tagFor(tag)
			t.Operations = append(t.Operations, Operation{
				Method:      strings.ToUpper(method),
				Path:        path,
				OperationID: raw.OperationID,
				Summary:     raw.Summary,
				Description: raw.Description,
				Parameters:  raw.Parameters,
			})
		}
	}

	// Declared tags nothing uses produce no pages
	used := spec.Tags[:0]
	for _, t := range spec.Tags {
		if len(t.Operations) > 0 {
			used = append(used, t)
		}
	}
	spec.Tags = used

	return spec, nil
}
