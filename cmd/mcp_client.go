// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/docs-ai/docs-ai/pkg/mcp"
	"github.com/docs-ai/docs-ai/pkg/tools"
)

// discoverExternalTools connects to the MCP servers from the client
// configuration and registers their tools with the tool system, so that
// --mcp-server re-exports them alongside the built-in web tools.
// The returned cleanup closes the server connections.
func discoverExternalTools(ctx context.Context) (func(), error) {
	manager, err := mcp.InitializeManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP manager: %w", err)
	}

	err = manager.RegisterWithToolSystem(ctx, func(serverName string, toolInfo mcp.Tool) error {
		schema, err := tools.ConvertToolToDefinition(&toolInfo)
		if err != nil {
			return err
		}

		mcpTool := tools.NewMCPTool(serverName, toolInfo.Name, toolInfo.Description, schema, manager)
		tools.RegisterTool(mcpTool)
		return nil
	})
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}

	cleanup := func() {
		if err := manager.Close(); err != nil {
			klog.Warningf("Failed to close MCP connections: %v", err)
		}
	}
	return cleanup, nil
}
