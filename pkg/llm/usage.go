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
	openai "github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/docs-ai/docs-ai/pkg/api"
)

// UsageFromMetadata converts the provider-specific payload returned by
// ChatResponse.UsageMetadata into provider-neutral token counts.
// It returns false when the payload is nil, unrecognized, or empty.
//
// For streaming responses the payload is cumulative for the whole call,
// so callers must fold in only the last sample of a stream.
func UsageFromMetadata(metadata any) (api.TokenUsage, bool) {
	switch usage := metadata.(type) {
	case openai.CompletionUsage:
		if usage.TotalTokens == 0 {
			return api.TokenUsage{}, false
		}
		return api.TokenUsage{
			InputTokens:  usage.PromptTokens,
			OutputTokens: usage.CompletionTokens,
			TotalTokens:  usage.TotalTokens,
		}, true
	case *genai.GenerateContentResponseUsageMetadata:
		if usage == nil {
			return api.TokenUsage{}, false
		}
		if usage.PromptTokenCount == 0 && usage.CandidatesTokenCount == 0 {
			return api.TokenUsage{}, false
		}
		return api.TokenUsage{
			InputTokens:  int64(usage.PromptTokenCount),
			OutputTokens: int64(usage.CandidatesTokenCount),
			TotalTokens:  int64(usage.TotalTokenCount),
		}, true
	default:
		return api.TokenUsage{}, false
	}
}
