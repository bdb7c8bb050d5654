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

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/docs-ai/docs-ai/pkg/llm"
)

func init() {
	RegisterTool(&ReadPageTool{})
}

// ReadPageTool fetches a single URL and returns its readable content.
// The model uses it to follow a link from an earlier search result.
type ReadPageTool struct{}

func (t *ReadPageTool) Name() string {
	return "read_page"
}

func (t *ReadPageTool) Description() string {
	return "Fetches a web page and returns its readable content as Markdown. Use this tool to read a specific URL, for example one mentioned in earlier search results or by the user."
}

func (t *ReadPageTool) FunctionDefinition() *llm.FunctionDefinition {
	return &llm.FunctionDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &llm.Schema{
			Type: llm.TypeObject,
			Properties: map[string]*llm.Schema{
				"url": {
					Type:        llm.TypeString,
					Description: `The http or https URL of the page to read.`,
				},
			},
			Required: []string{"url"},
		},
	}
}

func (t *ReadPageTool) IsInteractive(args map[string]any) (bool, error) {
	return false, nil
}

func (t *ReadPageTool) Run(ctx context.Context, args map[string]any) (any, error) {
	rawURL, ok := args["url"].(string)
	if !ok || strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("url must be a non-empty string")
	}
	return defaultFetcher().Fetch(ctx, strings.TrimSpace(rawURL))
}
