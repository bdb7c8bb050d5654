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

package llm

import (
	"testing"

	openai "github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/docs-ai/docs-ai/pkg/api"
)

func TestUsageFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata any
		want     api.TokenUsage
		wantOK   bool
	}{
		{
			name:     "nil metadata",
			metadata: nil,
			wantOK:   false,
		},
		{
			name: "openai usage",
			metadata: openai.CompletionUsage{
				PromptTokens:     120,
				CompletionTokens: 30,
				TotalTokens:      150,
			},
			want:   api.TokenUsage{InputTokens: 120, OutputTokens: 30, TotalTokens: 150},
			wantOK: true,
		},
		{
			name:     "openai usage with zero totals",
			metadata: openai.CompletionUsage{},
			wantOK:   false,
		},
		{
			name: "gemini usage",
			metadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     200,
				CandidatesTokenCount: 50,
				TotalTokenCount:      250,
			},
			want:   api.TokenUsage{InputTokens: 200, OutputTokens: 50, TotalTokens: 250},
			wantOK: true,
		},
		{
			name:     "nil gemini usage pointer",
			metadata: (*genai.GenerateContentResponseUsageMetadata)(nil),
			wantOK:   false,
		},
		{
			name:     "unrecognized payload",
			metadata: "some string",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UsageFromMetadata(tt.metadata)
			if ok != tt.wantOK {
				t.Fatalf("UsageFromMetadata() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("UsageFromMetadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTokenUsageAdd(t *testing.T) {
	var total api.TokenUsage
	total.Add(100, 20, 120)
	total.Add(50, 10, 0) // total reconstructed from input+output

	want := api.TokenUsage{InputTokens: 150, OutputTokens: 30, TotalTokens: 180}
	if total != want {
		t.Errorf("accumulated usage = %+v, want %+v", total, want)
	}
	if got, want := total.String(), "input: 150, output: 30, total: 180"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
