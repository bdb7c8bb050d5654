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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"k8s.io/klog/v2"

	"github.com/docs-ai/docs-ai/pkg/tools"
)

// docsMCPServer exposes the built-in web tools over MCP, so that other
// agents can call web_search and read_page without going through the
// chat loop.
type docsMCPServer struct {
	server     *server.MCPServer
	tools      tools.Tools
	workDir    string
	searchSite string
	mode       string
	ssePort    int
}

func newDocsMCPServer(ctx context.Context, t tools.Tools, workDir string, searchSite string, mode string, ssePort int) (*docsMCPServer, error) {
	s := &docsMCPServer{
		server: server.NewMCPServer(
			"docs-ai",
			version,
			server.WithToolCapabilities(true),
		),
		tools:      t,
		workDir:    workDir,
		searchSite: searchSite,
		mode:       mode,
		ssePort:    ssePort,
	}
	for _, tool := range s.tools.AllTools() {
		toolDefn := tool.FunctionDefinition()
		toolInputSchema, err := toolDefn.Parameters.ToRawSchema()
		if err != nil {
			return nil, fmt.Errorf("converting tool schema to json.RawMessage: %w", err)
		}
		s.server.AddTool(mcp.NewToolWithRawSchema(
			toolDefn.Name,
			toolDefn.Description,
			toolInputSchema,
		), s.handleToolCall)
	}
	return s, nil
}

func (s *docsMCPServer) Serve(ctx context.Context) error {
	switch s.mode {
	case "sse":
		sseServer := server.NewSSEServer(s.server)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sseServer.Shutdown(shutdownCtx); err != nil {
				klog.Errorf("Error shutting down SSE server: %v", err)
			}
		}()
		addr := fmt.Sprintf(":%d", s.ssePort)
		klog.Infof("Serving MCP over SSE on %s", addr)
		if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("running SSE server: %w", err)
		}
		return nil
	case "stdio":
		return server.ServeStdio(s.server)
	default:
		return fmt.Errorf("MCP server mode %q is not known", s.mode)
	}
}

func (s *docsMCPServer) handleToolCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log := klog.FromContext(ctx)

	name := request.Params.Name
	arguments := request.GetArguments()
	log.Info("Received tool call", "tool", name, "arguments", arguments)

	output, err := s.tools.InvokeTool(ctx, name, arguments, tools.InvokeToolOptions{
		WorkDir:    s.workDir,
		SearchSite: s.searchSite,
	})
	if err != nil {
		log.Error(err, "Error running tool call")
		return textResult(fmt.Sprintf("Error: %v", err), true), nil
	}

	text, ok := output.(string)
	if !ok {
		b, err := json.Marshal(output)
		if err != nil {
			log.Error(err, "Error converting tool call output to result")
			return textResult(fmt.Sprintf("Error: %v", err), true), nil
		}
		text = string(b)
	}

	log.Info("Tool call output", "tool", name, "result", text)

	return textResult(text, false), nil
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: isError,
	}
}
