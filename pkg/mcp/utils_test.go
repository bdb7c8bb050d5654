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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"max_results", "maxResults"},
		{"query", "query"},
		{"include_source_links", "includeSourceLinks"},
		{"a_b_c", "aBC"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SnakeToCamel(tt.input); got != tt.want {
				t.Errorf("SnakeToCamel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value any
		want  any
	}{
		{"numeric string for count param", "maxCount", "5", 5},
		{"float string for limit param", "limit", "2.5", 2.5},
		{"whole float for number param", "resultNumber", float64(3), 3},
		{"bool string for is param", "isRecursive", "true", true},
		{"int for enabled param", "cacheEnabled", 1, 1},
		{"plain string untouched", "query", "golang", "golang"},
		{"bool passthrough", "anything", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertValue(tt.param, tt.value); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ConvertValue(%q, %v) = %v (%T), want %v (%T)",
					tt.param, tt.value, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConvertArgs(t *testing.T) {
	args := map[string]any{
		"max_results": "3",
		"query":       "http servers",
	}

	got := ConvertArgs(args)

	if got["maxResults"] != 3 {
		t.Errorf("maxResults = %v, want 3", got["maxResults"])
	}
	if got["query"] != "http servers" {
		t.Errorf("query = %v, want unchanged", got["query"])
	}
	if _, exists := got["max_results"]; exists {
		t.Error("snake_case key should have been replaced")
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	config := RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second}, // capped
	}

	for _, tt := range tests {
		if got := calculateBackoffDelay(tt.attempt, config); got != tt.want {
			t.Errorf("calculateBackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryOperation(t *testing.T) {
	fastRetry := RetryConfig{
		MaxRetries:  3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
		Description: "test operation",
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := RetryOperation(context.Background(), fastRetry, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Errorf("RetryOperation() error = %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := RetryOperation(context.Background(), fastRetry, func() error {
			attempts++
			return errors.New("permanent")
		})
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if attempts != fastRetry.MaxRetries {
			t.Errorf("expected %d attempts, got %d", fastRetry.MaxRetries, attempts)
		}
	})
}

func TestExpandPath(t *testing.T) {
	dir := t.TempDir()

	executable := filepath.Join(dir, "docs-mcp-server")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"absolute executable", executable, executable, false},
		{"not executable", plain, "", true},
		{"missing file", filepath.Join(dir, "missing"), "", true},
		{"empty path", "", "", true},
		{"env expansion", "$MCP_TEST_DIR/docs-mcp-server", executable, false},
	}

	t.Setenv("MCP_TEST_DIR", dir)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestClientConfigFromServer(t *testing.T) {
	server := ServerConfig{
		Name:    "local",
		Command: "docs-mcp-server",
		Args:    []string{"--stdio"},
		Env:     map[string]string{"B_VAR": "2", "A_VAR": "1"},
		Timeout: 15,
	}

	config := clientConfigFromServer(server)

	if config.Name != "local" || config.Command != "docs-mcp-server" {
		t.Errorf("unexpected client config: %+v", config)
	}
	wantEnv := []string{"A_VAR=1", "B_VAR=2"}
	if !reflect.DeepEqual(config.Env, wantEnv) {
		t.Errorf("env = %v, want %v (sorted)", config.Env, wantEnv)
	}
	if config.Timeout != 15 {
		t.Errorf("timeout = %d, want 15", config.Timeout)
	}
}
