package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	openapi3 "github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/gin-gonic/gin"

	"github.com/ccheshirecat/safepaw/internal/vm/events"
)

// serveOpenAPI returns an OpenAPI v3 JSON document generated from server types.
func (s *apiServer) serveOpenAPI(c *gin.Context) {
	baseURL := ""
	if c.Request.Host != "" {
		scheme := "http"
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}

	spec, err := BuildOpenAPISpec(baseURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("failed to build openapi: %v", err)})
		return
	}
	c.JSON(http.StatusOK, spec)
}

// BuildOpenAPISpec constructs the OpenAPI spec. If baseURL is non-empty, it will be set as the server URL.
func BuildOpenAPISpec(baseURL string) (*openapi3.T, error) {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "SafePaw REST API",
			Version:     "v1",
			Description: "Lifecycle control for Multipass-backed agent VMs.",
		},
		Servers:    openapi3.Servers{},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	if baseURL != "" {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: baseURL})
	}

	gen := openapi3gen.NewGenerator(
		openapi3gen.CreateComponentSchemas(openapi3gen.ExportComponentSchemasOptions{
			ExportComponentSchemas: true,
			ExportTopLevelSchema:   false,
			ExportGenerics:         true,
		}),
	)

	vmRespRef, err := gen.NewSchemaRefForValue(&vmResponse{}, spec.Components.Schemas)
	if err != nil {
		return nil, fmt.Errorf("openapi: vm schema: %w", err)
	}
	launchReqRef, err := gen.NewSchemaRefForValue(&launchVMRequest{}, spec.Components.Schemas)
	if err != nil {
		return nil, fmt.Errorf("openapi: launch schema: %w", err)
	}
	envelopeRef, err := gen.NewSchemaRefForValue(&envelopeResponse{}, spec.Components.Schemas)
	if err != nil {
		return nil, fmt.Errorf("openapi: envelope schema: %w", err)
	}
	vmEventRef, err := gen.NewSchemaRefForValue(&events.VMEvent{}, spec.Components.Schemas)
	if err != nil {
		return nil, fmt.Errorf("openapi: event schema: %w", err)
	}

	errorSchema := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: map[string]*openapi3.SchemaRef{
			"error": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		},
	})
	spec.Components.Schemas["Error"] = errorSchema

	jsonResponse := func(desc string, ref *openapi3.SchemaRef) *openapi3.ResponseRef {
		resp := openapi3.NewResponse().WithDescription(desc)
		resp.Content = openapi3.NewContentWithJSONSchemaRef(ref)
		return &openapi3.ResponseRef{Value: resp}
	}

	spec.AddOperation("/health", http.MethodGet, func() *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = "Health check"
		op.OperationID = "getHealth"
		op.Tags = []string{"health"}
		op.Responses = openapi3.NewResponses()
		schema := openapi3.NewObjectSchema()
		schema.Properties = map[string]*openapi3.SchemaRef{
			"status": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}
		op.Responses.Set("200", jsonResponse("Service is healthy", openapi3.NewSchemaRef("", schema)))
		return op
	}())

	spec.AddOperation("/vms", http.MethodGet, func() *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = "List VMs"
		op.OperationID = "listVMs"
		op.Tags = []string{"vm"}
		op.Responses = openapi3.NewResponses()
		arr := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeArray}, Items: vmRespRef}
		op.Responses.Set("200", jsonResponse("Array of VMs", openapi3.NewSchemaRef("", arr)))
		op.Responses.Set("500", jsonResponse("Multipass failure", errorSchema))
		return op
	}())

	spec.AddOperation("/vms", http.MethodPost, func() *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = "Launch VM"
		op.OperationID = "launchVM"
		op.Tags = []string{"vm"}
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{Required: true, Content: openapi3.NewContentWithJSONSchemaRef(launchReqRef)}}
		op.Responses = openapi3.NewResponses()
		op.Responses.Set("201", jsonResponse("VM launched", envelopeRef))
		op.Responses.Set("400", jsonResponse("Bad request", envelopeRef))
		op.Responses.Set("500", jsonResponse("Multipass failure", envelopeRef))
		return op
	}())

	nameParam := &openapi3.ParameterRef{Value: &openapi3.Parameter{Name: "name", In: openapi3.ParameterInPath, Required: true, Schema: openapi3.NewSchemaRef("", openapi3.NewStringSchema())}}

	spec.AddOperation("/vms/{name}", http.MethodGet, func() *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = "Fetch VM details"
		op.OperationID = "getVM"
		op.Tags = []string{"vm"}
		op.Parameters = openapi3.Parameters{nameParam}
		op.Responses = openapi3.NewResponses()
		op.Responses.Set("200", jsonResponse("VM", vmRespRef))
		op.Responses.Set("404", jsonResponse("Not found", errorSchema))
		op.Responses.Set("500", jsonResponse("Multipass failure", errorSchema))
		return op
	}())

	for _, action := range []struct{ method, path, id, summary string }{
		{http.MethodDelete, "/vms/{name}", "deleteVM", "Delete and purge VM"},
		{http.MethodPost, "/vms/{name}/start", "startVM", "Start VM"},
		{http.MethodPost, "/vms/{name}/stop", "stopVM", "Stop VM"},
		{http.MethodPost, "/vms/{name}/restart", "restartVM", "Restart VM"},
	} {
		op := openapi3.NewOperation()
		op.Summary = action.summary
		op.OperationID = action.id
		op.Tags = []string{"vm"}
		op.Parameters = openapi3.Parameters{nameParam}
		op.Responses = openapi3.NewResponses()
		op.Responses.Set("200", jsonResponse("Operation succeeded", envelopeRef))
		op.Responses.Set("500", jsonResponse("Multipass failure", envelopeRef))
		spec.AddOperation(action.path, action.method, op)
	}

	spec.AddOperation("/api/v1/events/vms", http.MethodGet, func() *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = "Stream VM lifecycle events (SSE)"
		op.OperationID = "streamVMEvents"
		op.Tags = []string{"events"}
		op.Responses = openapi3.NewResponses()
		desc := "SSE stream of VM events"
		resp := &openapi3.Response{Description: &desc, Content: openapi3.Content{"text/event-stream": {Schema: vmEventRef}}}
		op.Responses.Set("200", &openapi3.ResponseRef{Value: resp})
		op.Responses.Set("503", jsonResponse("Streaming disabled", errorSchema))
		return op
	}())

	return spec, nil
}
