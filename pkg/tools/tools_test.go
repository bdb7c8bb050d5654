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
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/docs-ai/docs-ai/pkg/llm"
)

// probeTool records the context values it was invoked with.
type probeTool struct {
	workDir    string
	searchSite string
	result     any
	err        error
}

func (t *probeTool) Name() string        { return "probe" }
func (t *probeTool) Description() string { return "records its invocation" }

func (t *probeTool) FunctionDefinition() *llm.FunctionDefinition {
	return &llm.FunctionDefinition{Name: t.Name(), Description: t.Description()}
}

func (t *probeTool) IsInteractive(args map[string]any) (bool, error) { return false, nil }

func (t *probeTool) Run(ctx context.Context, args map[string]any) (any, error) {
	t.workDir, _ = ctx.Value(WorkDirKey).(string)
	t.searchSite, _ = ctx.Value(SearchSiteKey).(string)
	return t.result, t.err
}

func TestDefaultToolsRegistered(t *testing.T) {
	for _, name := range []string{"web_search", "read_page"} {
		if Lookup(name) == nil {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestToolsRegistry(t *testing.T) {
	var ts Tools
	ts.Init()
	ts.RegisterTool(&ReadPageTool{})

	if ts.Lookup("read_page") == nil {
		t.Error("registered tool not found")
	}
	if !slices.Contains(ts.Names(), "read_page") {
		t.Errorf("Names() = %v", ts.Names())
	}
	if len(ts.AllTools()) != 1 {
		t.Errorf("AllTools() returned %d tools, want 1", len(ts.AllTools()))
	}
}

func TestRegisterToolDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()

	var ts Tools
	ts.Init()
	ts.RegisterTool(&ReadPageTool{})
	ts.RegisterTool(&ReadPageTool{})
}

func TestInvokeToolUnknown(t *testing.T) {
	var ts Tools
	ts.Init()

	_, err := ts.InvokeTool(context.Background(), "nope", nil, InvokeToolOptions{})
	if err == nil || !strings.Contains(err.Error(), "not recognized") {
		t.Errorf("err = %v, want not recognized", err)
	}
}

func TestInvokeToolCarriesOptions(t *testing.T) {
	probe := &probeTool{result: map[string]any{"ok": true}}
	var ts Tools
	ts.Init()
	ts.RegisterTool(probe)

	got, err := ts.InvokeTool(context.Background(), "probe", nil, InvokeToolOptions{
		WorkDir:    "/tmp/scratch",
		SearchSite: "go.dev",
	})
	if err != nil {
		t.Fatalf("InvokeTool: %v", err)
	}
	if probe.workDir != "/tmp/scratch" {
		t.Errorf("work dir = %q", probe.workDir)
	}
	if probe.searchSite != "go.dev" {
		t.Errorf("search site = %q", probe.searchSite)
	}
	if m, ok := got.(map[string]any); !ok || m["ok"] != true {
		t.Errorf("response = %+v", got)
	}
}

func TestInvokeToolPropagatesError(t *testing.T) {
	probe := &probeTool{err: errors.New("tool broke")}
	var ts Tools
	ts.Init()
	ts.RegisterTool(probe)

	_, err := ts.InvokeTool(context.Background(), "probe", nil, InvokeToolOptions{})
	if err == nil || !strings.Contains(err.Error(), "tool broke") {
		t.Errorf("err = %v, want the tool's error", err)
	}
}

func TestToolResultToMap(t *testing.T) {
	type payload struct {
		A string `json:"a"`
		N int    `json:"n"`
	}

	m, err := ToolResultToMap(&payload{A: "x", N: 3})
	if err != nil {
		t.Fatalf("ToolResultToMap: %v", err)
	}
	if m["a"] != "x" || m["n"] != float64(3) {
		t.Errorf("map = %+v", m)
	}

	if _, err := ToolResultToMap("bare string"); err == nil {
		t.Error("expected error for non-object result")
	}
}
