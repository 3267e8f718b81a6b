// Package openapiutil loads and inspects the API's OpenAPI document.
package openapiutil

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation describes a single OpenAPI operation with resolved metadata.
type Operation struct {
	OperationID string
	Method      string
	Path        string
	Summary     string
	Parameters  []Parameter
}

// Parameter captures relevant parameter metadata from the document.
type Parameter struct {
	Name     string
	In       string
	Required bool
}

// ParseDocument loads an OpenAPI document from raw bytes and validates it.
func ParseDocument(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// ListOperations flattens all operations in the document, ordered by path
// then method.
func ListOperations(doc *openapi3.T) []Operation {
	var ops []Operation
	if doc == nil || doc.Paths == nil {
		return ops
	}

	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		pathParams := collectParameters(item.Parameters)
		for method, op := range item.Operations() {
			ops = append(ops, Operation{
				OperationID: op.OperationID,
				Method:      strings.ToUpper(method),
				Path:        path,
				Summary:     op.Summary,
				Parameters:  append(collectParameters(op.Parameters), pathParams...),
			})
		}
	}

	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

func collectParameters(refs openapi3.Parameters) []Parameter {
	params := make([]Parameter, 0, len(refs))
	for _, ref := range refs {
		if ref == nil || ref.Value == nil {
			continue
		}
		params = append(params, Parameter{
			Name:     ref.Value.Name,
			In:       ref.Value.In,
			Required: ref.Value.Required,
		})
	}
	return params
}
