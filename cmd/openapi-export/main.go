package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	openapi3 "github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/ccheshirecat/safepaw/internal/cli/openapiutil"
	httpapi "github.com/ccheshirecat/safepaw/internal/server/httpapi"
)

func main() {
	var (
		outPath   string
		format    string
		serverURL string
		list      bool
	)

	flag.StringVar(&outPath, "output", "", "Output path (default stdout)")
	flag.StringVar(&format, "format", "json", "Output format: json or yaml")
	flag.StringVar(&serverURL, "server", "http://127.0.0.1:8889", "Server URL to include in OpenAPI servers list")
	flag.BoolVar(&list, "list", false, "Print the operations instead of the document")
	flag.Parse()

	spec, err := httpapi.BuildOpenAPISpec("")
	if err != nil {
		fatalf("build openapi: %v", err)
	}

	serverURL = strings.TrimSpace(serverURL)
	if serverURL != "" {
		spec.Servers = openapi3.Servers{&openapi3.Server{URL: serverURL}}
	}

	raw, err := json.Marshal(spec)
	if err != nil {
		fatalf("marshal json: %v", err)
	}
	doc, err := openapiutil.ParseDocument(context.Background(), raw)
	if err != nil {
		fatalf("generated document is invalid: %v", err)
	}
	if list {
		for _, op := range openapiutil.ListOperations(doc) {
			fmt.Printf("%-7s %-28s %-16s %s\n", op.Method, op.Path, op.OperationID, op.Summary)
		}
		return
	}

	var data []byte
	switch strings.ToLower(format) {
	case "json":
		data, err = json.MarshalIndent(spec, "", "  ")
		if err != nil {
			fatalf("marshal json: %v", err)
		}
		data = append(data, '\n')
	case "yaml", "yml":
		// Round-trip through JSON so the document keeps its OpenAPI field names.
		var tree any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			fatalf("convert to yaml: %v", err)
		}
		data, err = yaml.Marshal(tree)
		if err != nil {
			fatalf("marshal yaml: %v", err)
		}
	default:
		fatalf("unsupported format: %s (want json or yaml)", format)
	}

	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fatalf("write %s: %v", outPath, err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
