package openapiutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ccheshirecat/safepaw/internal/server/httpapi"
)

func TestGeneratedDocumentValidates(t *testing.T) {
	spec, err := httpapi.BuildOpenAPISpec("http://127.0.0.1:8889")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc, err := ParseDocument(context.Background(), data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ops := ListOperations(doc)
	byKey := map[string]Operation{}
	for _, op := range ops {
		byKey[op.Method+" "+op.Path] = op
	}
	for _, key := range []string{
		"GET /health",
		"GET /vms",
		"POST /vms",
		"GET /vms/{name}",
		"DELETE /vms/{name}",
		"POST /vms/{name}/start",
		"POST /vms/{name}/stop",
		"POST /vms/{name}/restart",
		"GET /api/v1/events/vms",
	} {
		if _, ok := byKey[key]; !ok {
			t.Fatalf("missing operation %s in %v", key, ops)
		}
	}

	del := byKey["DELETE /vms/{name}"]
	if del.OperationID != "deleteVM" {
		t.Fatalf("delete operation id = %q", del.OperationID)
	}
	if len(del.Parameters) != 1 || del.Parameters[0].Name != "name" || !del.Parameters[0].Required {
		t.Fatalf("delete parameters = %+v", del.Parameters)
	}

	for i := 1; i < len(ops); i++ {
		prev, cur := ops[i-1], ops[i]
		if prev.Path > cur.Path || (prev.Path == cur.Path && prev.Method > cur.Method) {
			t.Fatalf("operations not sorted at %d: %v then %v", i, prev, cur)
		}
	}
}

func TestParseDocumentRejectsInvalid(t *testing.T) {
	if _, err := ParseDocument(context.Background(), []byte(`{"openapi":"3.0.3","paths":{}}`)); err == nil {
		t.Fatalf("expected validation error for document without info")
	}
}
