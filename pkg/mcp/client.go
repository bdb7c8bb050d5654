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
	"context"
	"fmt"
	"reflect"

	"github.com/docs-ai/docs-ai/pkg/llm"
	mcpclient "github.com/mark3labs/mcp-go/client"
	mcp "github.com/mark3labs/mcp-go/mcp"
	"k8s.io/klog/v2"
)

// ===================================================================
// Client Types and Factory Functions
// ===================================================================

// Client represents an MCP client that can connect to MCP servers.
// It wraps the transport-specific MCPClient implementations.
type Client struct {
	// Name is a friendly name for this MCP server connection
	Name string
	// The actual client implementation (stdio or HTTP)
	impl MCPClient
	// client is the underlying MCP library client
	client *mcpclient.Client
}

// Tool represents an MCP tool with optional server information.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Server      string `json:"server,omitempty"`

	InputSchema *llm.Schema `json:"inputSchema,omitempty"`
}

// NewClient creates a new MCP client with the given configuration.
// This function supports both stdio and HTTP-based MCP servers.
func NewClient(config ClientConfig) *Client {
	// Create the appropriate implementation based on configuration
	var impl MCPClient
	if config.URL != "" {
		// HTTP-based client
		impl = NewHTTPClient(config)
	} else {
		// Stdio-based client
		impl = NewStdioClient(config)
	}

	return &Client{
		Name: config.Name,
		impl: impl,
	}
}

// ===================================================================
// Main Client Interface Methods
// ===================================================================

// Connect establishes a connection to the MCP server.
// This delegates to the appropriate implementation (stdio or HTTP).
func (c *Client) Connect(ctx context.Context) error {
	klog.V(2).InfoS("Connecting to MCP server", "name", c.Name)

	// Delegate to the implementation
	if err := c.impl.Connect(ctx); err != nil {
		return err
	}

	c.client = c.impl.getUnderlyingClient()

	klog.V(2).InfoS("Successfully connected to MCP server", "name", c.Name)
	return nil
}

// Close closes the connection to the MCP server.
func (c *Client) Close() error {
	if c.impl == nil {
		return nil // Not initialized
	}

	klog.V(2).InfoS("Closing connection to MCP server", "name", c.Name)

	// Delegate to implementation
	err := c.impl.Close()
	c.client = nil // Clear reference to underlying client

	if err != nil {
		return fmt.Errorf("closing MCP client: %w", err)
	}

	return nil
}

// ListTools lists all available tools from the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	// Delegate to implementation
	tools, err := c.impl.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	klog.V(2).InfoS("Listed tools from MCP server", "count", len(tools), "server", c.Name)
	return tools, nil
}

// CallTool calls a tool on the MCP server and returns the result as a string.
// The arguments should be a map of parameter names to values that will be passed to the tool.
func (c *Client) CallTool(ctx context.Context, toolName string, arguments map[string]interface{}) (string, error) {
	klog.V(2).InfoS("Calling MCP tool", "server", c.Name, "tool", toolName, "args", arguments)

	if err := c.ensureConnected(); err != nil {
		return "", err
	}

	// Delegate to implementation
	return c.impl.CallTool(ctx, toolName, arguments)
}

// ===================================================================
// Tool Methods
// ===================================================================

// WithServer returns a copy of the tool with server information added.
func (t Tool) WithServer(server string) Tool {
	copy := t
	copy.Server = server
	return copy
}

// String returns a human-readable representation of the tool.
func (t Tool) String() string {
	if t.Server != "" {
		return fmt.Sprintf("%s (from %s)", t.Name, t.Server)
	}
	return t.Name
}

// convertMCPToolsToTools converts MCP library tools to our Tool type.
func convertMCPToolsToTools(mcpTools []mcp.Tool) ([]Tool, error) {
	tools := make([]Tool, 0, len(mcpTools))
	for _, mcpTool := range mcpTools {
		tool := Tool{
			Name:        mcpTool.Name,
			Description: mcpTool.Description,
		}
		// TODO: Annotations (give hints about e.g. read-only, destructive, idempotent, open-world)

		if mcpTool.InputSchema.Type != "" {
			schema, err := convertMCPInputSchema(&mcpTool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("converting MCP input schema to tool input schema: %w", err)
			}
			tool.InputSchema = schema
		} else {
			return nil, fmt.Errorf("no input schema for tool %s", mcpTool.Name)
		}

		tools = append(tools, tool)
	}
	return tools, nil
}

func convertMCPInputSchema(mcpInputSchema *mcp.ToolInputSchema) (*llm.Schema, error) {
	schema := &llm.Schema{}
	switch mcpInputSchema.Type {
	case "string":
		schema.Type = llm.TypeString
	case "boolean":
		schema.Type = llm.TypeBoolean
	case "object":
		schema.Type = llm.TypeObject
	default:
		return nil, fmt.Errorf("unexpected MCP input schema type: %s", mcpInputSchema.Type)
	}
	if mcpInputSchema.Properties != nil {
		schema.Properties = make(map[string]*llm.Schema)
		for key, value := range mcpInputSchema.Properties {
			if valueSchema, ok := value.(mcp.ToolInputSchema); ok {
				converted, err := convertMCPInputSchema(&valueSchema)
				if err != nil {
					return nil, fmt.Errorf("converting MCP input schema to tool input schema: %w", err)
				}
				schema.Properties[key] = converted
			} else if valueMap, ok := value.(map[string]interface{}); ok {
				converted, err := convertMCPMapSchema(key, valueMap)
				if err != nil {
					return nil, fmt.Errorf("converting MCP input schema to tool input schema: %w", err)
				}
				schema.Properties[key] = converted
			} else {
				return nil, fmt.Errorf("unexpected input schema type for %q: %T %+v", key, value, value)
			}
		}
	}
	schema.Required = mcpInputSchema.Required
	return schema, nil
}

func convertMCPMapSchema(key string, schemaMap map[string]interface{}) (*llm.Schema, error) {
	schema := &llm.Schema{}

	if descriptionObj, ok := schemaMap["description"]; ok {
		description, ok := descriptionObj.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected description for key %q: %+v", key, schemaMap)
		}
		schema.Description = description
	}

	mcpType, ok := schemaMap["type"].(string)
	if !ok {
		// Fallback: treat any unrecognized schema as generic object
		klog.V(2).InfoS("Unrecognized schema format, treating as object", "key", key)
		schema.Type = llm.TypeObject
		return schema, nil
	}
	switch mcpType {
	case "string":
		schema.Type = llm.TypeString
	case "number":
		schema.Type = llm.TypeNumber
	case "integer":
		schema.Type = llm.TypeNumber
	case "boolean":
		schema.Type = llm.TypeBoolean
	case "array":
		items, ok := schemaMap["items"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("did not find items for array: key %q: %+v", key, schemaMap)
		}
		itemsSchema, err := convertMCPMapSchema(key+".items", items)
		if err != nil {
			return nil, fmt.Errorf("converting MCP input schema to tool input schema: %w", err)
		}
		schema.Type = llm.TypeArray
		schema.Items = itemsSchema

	case "object":
		schema.Type = llm.TypeObject
		schema.Properties = make(map[string]*llm.Schema)
		if properties, ok := schemaMap["properties"].(map[string]interface{}); ok {
			for propKey, value := range properties {
				propertyMap, ok := value.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("unexpected property schema for %q: %+v", propKey, value)
				}
				propertySchema, err := convertMCPMapSchema(propKey, propertyMap)
				if err != nil {
					return nil, fmt.Errorf("converting MCP input schema to tool input schema: %w", err)
				}
				schema.Properties[propKey] = propertySchema
			}
		}
	default:
		return nil, fmt.Errorf("unexpected input schema type %q for key %q: %+v", mcpType, key, schemaMap)
	}

	return schema, nil
}

// ===================================================================
// Common Functions
// ===================================================================

// ensureClientConnected checks if the client is connected.
func ensureClientConnected(client *mcpclient.Client) error {
	if client == nil {
		return fmt.Errorf("client not connected")
	}
	return nil
}

// initializeClientConnection initializes the MCP connection with proper handshake.
func initializeClientConnection(ctx context.Context, client *mcpclient.Client) error {
	initCtx, cancel := context.WithTimeout(ctx, DefaultConnectionTimeout)
	defer cancel()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    ClientName,
		Version: ClientVersion,
	}

	_, err := client.Initialize(initCtx, initReq)
	if err != nil {
		return fmt.Errorf("initializing MCP client: %w", err)
	}

	return nil
}

// verifyClientConnection verifies the connection works by testing tool listing.
func verifyClientConnection(ctx context.Context, client *mcpclient.Client) error {
	verifyCtx, cancel := context.WithTimeout(ctx, DefaultVerificationTimeout)
	defer cancel()

	// Try to list tools as a basic connectivity test
	_, err := client.ListTools(verifyCtx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}

	return nil
}

// cleanupClient closes the client connection safely.
func cleanupClient(client **mcpclient.Client) {
	if *client != nil {
		_ = (*client).Close() // Ignore errors on cleanup
		*client = nil
	}
}

// processToolResponse processes a tool call response and extracts the text result.
// This function works with any MCP response object that has the expected fields.
func processToolResponse(result any) (string, error) {
	// Use reflection to safely access fields
	rv := reflect.ValueOf(result)

	// Handle pointer to struct
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("unexpected response type: %T", result)
	}

	// Check for IsError field
	isErrorField := rv.FieldByName("IsError")
	if isErrorField.IsValid() && isErrorField.Kind() == reflect.Bool {
		// Handle error response
		if isErrorField.Bool() {
			// Extract error message
			errorMsg := fmt.Sprintf("%+v", result)

			// Try to get message from Content field
			contentField := rv.FieldByName("Content")
			if contentField.IsValid() && contentField.Len() > 0 {
				if content := contentField.Index(0).Interface(); content != nil {
					if textContent, ok := mcp.AsTextContent(content); ok {
						errorMsg = textContent.Text
					}
				}
			}

			// Return JSON error data instead of Go error
			return fmt.Sprintf(`{"error": true, "message": %q, "status": "failed"}`, errorMsg), nil
		}
	}

	// Check for Content field
	contentField := rv.FieldByName("Content")
	if contentField.IsValid() && contentField.Len() > 0 {
		// Rely on AsTextContent from the MCP package, which handles the
		// specific response format
		content := contentField.Index(0).Interface()
		if textContent, ok := mcp.AsTextContent(content); ok {
			return textContent.Text, nil
		}
	}

	// If we couldn't extract text content, return a generic message
	return "Tool executed successfully, but no text content was returned", nil
}

// listClientTools implements the common ListTools functionality shared by both client types.
func listClientTools(ctx context.Context, client *mcpclient.Client, serverName string) ([]Tool, error) {
	if err := ensureClientConnected(client); err != nil {
		return nil, err
	}

	// Call the ListTools method on the MCP server
	result, err := client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	// Convert the result using the helper function
	tools, err := convertMCPToolsToTools(result.Tools)
	if err != nil {
		return nil, fmt.Errorf("parsing tools from MCP server: %w", err)
	}

	// Add the server name to each tool
	for i := range tools {
		tools[i].Server = serverName
	}

	return tools, nil
}
