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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{
			name:    "stdio server",
			config:  ServerConfig{Name: "local", Command: "docs-mcp-server"},
			wantErr: false,
		},
		{
			name:    "http server",
			config:  ServerConfig{Name: "remote", URL: "https://mcp.example.com/mcp"},
			wantErr: false,
		},
		{
			name:    "missing name",
			config:  ServerConfig{Command: "docs-mcp-server"},
			wantErr: true,
		},
		{
			name:    "neither command nor url",
			config:  ServerConfig{Name: "empty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServerConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty config is valid",
			config:  Config{},
			wantErr: false,
		},
		{
			name: "valid servers",
			config: Config{Servers: []ServerConfig{
				{Name: "a", Command: "server-a"},
				{Name: "b", URL: "https://b.example.com"},
			}},
			wantErr: false,
		},
		{
			name: "duplicate server names",
			config: Config{Servers: []ServerConfig{
				{Name: "a", Command: "server-a"},
				{Name: "a", Command: "server-a2"},
			}},
			wantErr: true,
		},
		{
			name: "invalid server rejected",
			config: Config{Servers: []ServerConfig{
				{Name: "a"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mcp.yaml")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(config.Servers) != 0 {
		t.Errorf("expected no servers in default config, got %d", len(config.Servers))
	}

	// The raw embedded file should land on disk, commented examples included
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if !strings.Contains(string(data), "servers: []") {
		t.Errorf("written default config missing empty server list:\n%s", data)
	}
	if !strings.Contains(string(data), "#") {
		t.Errorf("written default config lost its comments:\n%s", data)
	}
}

func TestConfigSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.yaml")

	original := &Config{
		Servers: []ServerConfig{
			{
				Name:    "local",
				Command: "docs-mcp-server",
				Args:    []string{"--stdio"},
				Env:     map[string]string{"DOCS_ROOT": "/srv/docs"},
			},
			{
				Name:    "hosted",
				URL:     "https://mcp.example.com/mcp",
				Timeout: 30,
				Auth:    &AuthConfig{Type: "bearer", Token: "tok-123"},
			},
		},
	}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(loaded.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(loaded.Servers))
	}

	local := loaded.Servers[0]
	if local.Name != "local" || local.Command != "docs-mcp-server" {
		t.Errorf("stdio server did not round-trip: %+v", local)
	}
	if got := local.Env["DOCS_ROOT"]; got != "/srv/docs" {
		t.Errorf("env did not round-trip, got %q", got)
	}

	hosted := loaded.Servers[1]
	if hosted.URL != "https://mcp.example.com/mcp" || hosted.Timeout != 30 {
		t.Errorf("http server did not round-trip: %+v", hosted)
	}
	if hosted.Auth == nil || hosted.Auth.Type != "bearer" || hosted.Auth.Token != "tok-123" {
		t.Errorf("auth did not round-trip: %+v", hosted.Auth)
	}
}

func TestApplyServerEnvironment(t *testing.T) {
	t.Run("http server overrides", func(t *testing.T) {
		t.Setenv("DOCS_AI_MCP_DOCS_URL", "https://override.example.com/mcp")
		t.Setenv("DOCS_AI_MCP_DOCS_TOKEN", "env-token")

		server := ServerConfig{
			Name: "docs",
			URL:  "https://original.example.com/mcp",
			Auth: &AuthConfig{Type: "bearer", Token: "file-token"},
		}
		applyServerEnvironment(&server)

		if server.URL != "https://override.example.com/mcp" {
			t.Errorf("URL not overridden, got %q", server.URL)
		}
		if server.Auth.Token != "env-token" {
			t.Errorf("token not overridden, got %q", server.Auth.Token)
		}
	})

	t.Run("stdio server overrides", func(t *testing.T) {
		t.Setenv("DOCS_AI_MCP_LOCAL_COMMAND", "/opt/bin/docs-mcp-server")
		t.Setenv("DOCS_AI_MCP_LOCAL_API_TOKEN", "abc123")

		server := ServerConfig{
			Name:    "local",
			Command: "docs-mcp-server",
		}
		applyServerEnvironment(&server)

		if server.Command != "/opt/bin/docs-mcp-server" {
			t.Errorf("command not overridden, got %q", server.Command)
		}
		if got := server.Env["API_TOKEN"]; got != "abc123" {
			t.Errorf("extra env var not forwarded, got %q", got)
		}
		if _, exists := server.Env["COMMAND"]; exists {
			t.Error("COMMAND must not leak into the server environment")
		}
	})
}
