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

// Package tools implements the docs-ai tool system.
package tools

import (
	"context"
	"fmt"

	"github.com/docs-ai/docs-ai/pkg/llm"
	"github.com/docs-ai/docs-ai/pkg/mcp"
)

// =============================================================================
// Schema Conversion Functions
// =============================================================================

// ConvertToolToDefinition converts an MCP tool to a function definition
// the model can call. The server's input schema is used when it declared
// one; otherwise the tool is exposed with an empty parameter object.
func ConvertToolToDefinition(mcpTool *mcp.Tool) (*llm.FunctionDefinition, error) {
	defn := &llm.FunctionDefinition{
		Name:        mcpTool.Name,
		Description: mcpTool.Description,
		Parameters:  mcpTool.InputSchema,
	}
	if defn.Parameters == nil {
		defn.Parameters = &llm.Schema{
			Type:       llm.TypeObject,
			Properties: map[string]*llm.Schema{},
		}
	}
	return defn, nil
}

// =============================================================================
// MCP Tool Implementation
// =============================================================================

// MCPTool wraps an MCP server tool to implement the Tool interface.
// It serves as an adapter between MCP-based tools and the docs-ai tool system.
type MCPTool struct {
	serverName  string
	toolName    string
	description string
	schema      *llm.FunctionDefinition
	manager     *mcp.Manager
}

// NewMCPTool creates a new MCP tool wrapper.
func NewMCPTool(serverName, toolName, description string, schema *llm.FunctionDefinition, manager *mcp.Manager) *MCPTool {
	return &MCPTool{
		serverName:  serverName,
		toolName:    toolName,
		description: description,
		schema:      schema,
		manager:     manager,
	}
}

// Name returns the tool name.
func (t *MCPTool) Name() string {
	return t.toolName
}

// ServerName returns the MCP server name.
func (t *MCPTool) ServerName() string {
	return t.serverName
}

// Description returns the tool description.
func (t *MCPTool) Description() string {
	return t.description
}

// FunctionDefinition returns the tool's function definition.
func (t *MCPTool) FunctionDefinition() *llm.FunctionDefinition {
	return t.schema
}

// TODO: detect interactive MCP tools from their annotations once the
// servers we care about publish them.
// IsInteractive checks if the tool requires interactive input.
func (t *MCPTool) IsInteractive(args map[string]any) (bool, error) {
	return false, nil
}

// Run executes the MCP tool by calling the appropriate MCP server.
func (t *MCPTool) Run(ctx context.Context, args map[string]any) (any, error) {
	// Get MCP client for the server
	client, exists := t.manager.GetClient(t.serverName)
	if !exists {
		return nil, fmt.Errorf("MCP server %q not connected", t.serverName)
	}

	// Convert arguments to proper types for MCP server using the MCP package's functions
	convertedArgs := mcp.ConvertArgs(args)

	// Execute tool on MCP server
	result, err := client.CallTool(ctx, t.toolName, convertedArgs)
	if err != nil {
		return nil, fmt.Errorf("calling MCP tool %q on server %q: %w", t.toolName, t.serverName, err)
	}

	return result, nil
}
