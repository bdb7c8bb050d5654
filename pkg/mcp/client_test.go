// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"strings"
	"testing"

	"github.com/docs-ai/docs-ai/pkg/llm"
	mcp "github.com/mark3labs/mcp-go/mcp"
)

func TestToolString(t *testing.T) {
	tests := []struct {
		name string
		tool Tool
		want string
	}{
		{"without server", Tool{Name: "search_docs"}, "search_docs"},
		{"with server", Tool{Name: "search_docs", Server: "docs"}, "search_docs (from docs)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tool.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolWithServer(t *testing.T) {
	tool := Tool{Name: "search_docs"}
	tagged := tool.WithServer("docs")

	if tagged.Server != "docs" {
		t.Errorf("WithServer() server = %q, want %q", tagged.Server, "docs")
	}
	if tool.Server != "" {
		t.Error("WithServer() must not modify the receiver")
	}
}

func TestConvertMCPInputSchema(t *testing.T) {
	input := &mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "the search query",
			},
			"max_results": map[string]any{
				"type": "integer",
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		Required: []string{"query"},
	}

	schema, err := convertMCPInputSchema(input)
	if err != nil {
		t.Fatalf("convertMCPInputSchema() error = %v", err)
	}

	if schema.Type != llm.TypeObject {
		t.Errorf("schema type = %v, want object", schema.Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "query" {
		t.Errorf("required = %v, want [query]", schema.Required)
	}

	query := schema.Properties["query"]
	if query == nil || query.Type != llm.TypeString {
		t.Errorf("query property = %+v, want string", query)
	}
	if query.Description != "the search query" {
		t.Errorf("query description = %q", query.Description)
	}

	if p := schema.Properties["max_results"]; p == nil || p.Type != llm.TypeNumber {
		t.Errorf("max_results property = %+v, want number", p)
	}

	tags := schema.Properties["tags"]
	if tags == nil || tags.Type != llm.TypeArray {
		t.Fatalf("tags property = %+v, want array", tags)
	}
	if tags.Items == nil || tags.Items.Type != llm.TypeString {
		t.Errorf("tags items = %+v, want string", tags.Items)
	}
}

func TestConvertMCPMapSchemaNestedObject(t *testing.T) {
	schemaMap := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filter": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"site": map[string]any{"type": "string"},
				},
			},
		},
	}

	schema, err := convertMCPMapSchema("root", schemaMap)
	if err != nil {
		t.Fatalf("convertMCPMapSchema() error = %v", err)
	}

	filter := schema.Properties["filter"]
	if filter == nil || filter.Type != llm.TypeObject {
		t.Fatalf("filter property = %+v, want object", filter)
	}
	if site := filter.Properties["site"]; site == nil || site.Type != llm.TypeString {
		t.Errorf("nested site property = %+v, want string", site)
	}
}

func TestConvertMCPMapSchemaUnknownType(t *testing.T) {
	if _, err := convertMCPMapSchema("x", map[string]any{"type": "tuple"}); err == nil {
		t.Error("expected error for unknown schema type")
	}
}

func TestConvertMCPToolsToTools(t *testing.T) {
	mcpTools := []mcp.Tool{
		{
			Name:        "search_docs",
			Description: "Search the documentation",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{"type": "string"},
				},
				Required: []string{"query"},
			},
		},
	}

	tools, err := convertMCPToolsToTools(mcpTools)
	if err != nil {
		t.Fatalf("convertMCPToolsToTools() error = %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Name != "search_docs" || tools[0].InputSchema == nil {
		t.Errorf("unexpected tool: %+v", tools[0])
	}
}

func TestProcessToolResponse(t *testing.T) {
	t.Run("text content", func(t *testing.T) {
		result := &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "42 results"},
			},
		}
		got, err := processToolResponse(result)
		if err != nil {
			t.Fatalf("processToolResponse() error = %v", err)
		}
		if got != "42 results" {
			t.Errorf("got %q, want %q", got, "42 results")
		}
	})

	t.Run("error response", func(t *testing.T) {
		result := &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "index unavailable"},
			},
		}
		got, err := processToolResponse(result)
		if err != nil {
			t.Fatalf("processToolResponse() error = %v", err)
		}
		if !strings.Contains(got, `"error": true`) || !strings.Contains(got, "index unavailable") {
			t.Errorf("error payload missing fields: %q", got)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		got, err := processToolResponse(&mcp.CallToolResult{})
		if err != nil {
			t.Fatalf("processToolResponse() error = %v", err)
		}
		if !strings.Contains(got, "no text content") {
			t.Errorf("got %q, want fallback message", got)
		}
	})

	t.Run("non struct input", func(t *testing.T) {
		if _, err := processToolResponse("bare string"); err == nil {
			t.Error("expected error for non-struct response")
		}
	})
}
