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

	mcpclient "github.com/mark3labs/mcp-go/client"
)

// MCPClient defines the common interface for all MCP client implementations
type MCPClient interface {
	// Name returns the name of this client
	Name() string

	// Connect establishes a connection to the MCP server
	Connect(ctx context.Context) error

	// Close closes the connection to the MCP server
	Close() error

	// ListTools lists all available tools from the MCP server
	ListTools(ctx context.Context) ([]Tool, error)

	// CallTool calls a tool on the MCP server and returns the result as a string
	CallTool(ctx context.Context, toolName string, arguments map[string]interface{}) (string, error)

	// ensureConnected makes sure the client is connected
	ensureConnected() error

	// getUnderlyingClient returns the underlying mcpclient.Client
	getUnderlyingClient() *mcpclient.Client
}

// ClientConfig contains all configuration options for MCP clients
type ClientConfig struct {
	// Common fields
	Name string

	// For stdio-based clients
	Command string
	Args    []string
	Env     []string

	// For HTTP-based clients
	URL         string
	Auth        *AuthConfig
	OAuthConfig *OAuthConfig
	Timeout     int
}

// AuthConfig represents authentication options for HTTP MCP servers.
// sigs.k8s.io/yaml routes through encoding/json, so these are json tags.
type AuthConfig struct {
	Type       string `json:"type"`                  // "none", "basic", "bearer", "api-key"
	Username   string `json:"username,omitempty"`    // For basic auth
	Password   string `json:"password,omitempty"`    // For basic auth
	Token      string `json:"token,omitempty"`       // For bearer auth
	ApiKey     string `json:"api_key,omitempty"`     // For API key auth
	HeaderName string `json:"header_name,omitempty"` // Custom header name for API key
}

// OAuthConfig represents OAuth configuration for HTTP MCP servers
type OAuthConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret,omitempty"`
	TokenURL     string   `json:"token_url,omitempty"`
	AuthURL      string   `json:"auth_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	RedirectURL  string   `json:"redirect_url,omitempty"`
}
