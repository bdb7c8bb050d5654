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

package agent

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	openai "github.com/openai/openai-go"
	"go.uber.org/mock/gomock"

	"github.com/docs-ai/docs-ai/internal/mocks"
	"github.com/docs-ai/docs-ai/pkg/api"
	"github.com/docs-ai/docs-ai/pkg/journal"
	"github.com/docs-ai/docs-ai/pkg/llm"
	"github.com/docs-ai/docs-ai/pkg/sessions"
	"github.com/docs-ai/docs-ai/pkg/tools"
)

func TestHandleMetaQuery(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		query        string
		expectations func(t *testing.T) *Agent
		verify       func(t *testing.T, a *Agent, answer string)
		expect       string
	}{
		{
			name:   "clear (shows store before/after with mocked model + tool outputs)",
			query:  "clear",
			expect: "Cleared the conversation.",
			expectations: func(t *testing.T) *Agent {
				ctrl := gomock.NewController(t)
				t.Cleanup(ctrl.Finish)

				store := sessions.NewInMemoryChatStore()

				chat := mocks.NewMockChat(ctrl)
				chat.EXPECT().Initialize([]*api.Message{}).Times(1)

				mt := mocks.NewMockTool(ctrl)
				mt.EXPECT().Name().Return("mock search tool").AnyTimes()
				mt.EXPECT().FunctionDefinition().Return(&llm.FunctionDefinition{
					Name:        "mock search tool",
					Description: "Search developer documentation",
				}).AnyTimes()

				const toolResult = `{"url":"https://go.dev/doc/faq"}`

				mt.EXPECT().Run(gomock.Any(), gomock.Any()).
					Return(toolResult, nil).Times(1)

				const modelText = "The answer is covered in the Go FAQ."

				// user message
				_ = store.AddChatMessage(&api.Message{
					ID:      "u1",
					Source:  api.MessageSourceUser,
					Type:    api.MessageTypeText,
					Payload: "Where is the Go FAQ?",
				})

				// model response
				_ = store.AddChatMessage(&api.Message{
					ID:      "a1",
					Source:  api.MessageSourceAgent,
					Type:    api.MessageTypeText,
					Payload: modelText,
				})

				// tool call result
				if out, err := mt.Run(ctx, map[string]any{}); err == nil {
					_ = store.AddChatMessage(&api.Message{
						ID:      "t1",
						Source:  api.MessageSourceAgent,
						Type:    api.MessageTypeText,
						Payload: out,
					})
				} else {
					t.Fatalf("mock tool run failed: %v", err)
				}

				if got := len(store.ChatMessages()); got != 3 {
					t.Fatalf("precondition: expected 3 messages before clear, got %d", got)
				}

				a := &Agent{llmChat: chat}
				a.session = &api.Session{ChatMessageStore: store}

				return a
			},
			verify: func(t *testing.T, a *Agent, _ string) {
				if got := len(a.session.ChatMessageStore.ChatMessages()); got != 0 {
					t.Fatalf("expected store to be empty after clear, got %d", got)
				}
			},
		},
		{
			name:   "exit",
			query:  "exit",
			expect: "It has been a pleasure assisting you. Have a great day!",
			expectations: func(t *testing.T) *Agent {
				a := &Agent{}
				a.session = &api.Session{}
				return a
			},
			verify: func(t *testing.T, a *Agent, _ string) {
				if a.AgentState() != api.AgentStateExited {
					t.Fatalf("expected agent to exit")
				}
			},
		},
		{
			name:   "q is an exit token",
			query:  "q",
			expect: "It has been a pleasure assisting you. Have a great day!",
			expectations: func(t *testing.T) *Agent {
				a := &Agent{}
				a.session = &api.Session{}
				return a
			},
			verify: func(t *testing.T, a *Agent, _ string) {
				if a.AgentState() != api.AgentStateExited {
					t.Fatalf("expected agent to exit")
				}
			},
		},
		{
			name:   "exit tokens are case-insensitive",
			query:  "  QUIT  ",
			expect: "It has been a pleasure assisting you. Have a great day!",
			expectations: func(t *testing.T) *Agent {
				a := &Agent{}
				a.session = &api.Session{}
				return a
			},
			verify: func(t *testing.T, a *Agent, _ string) {
				if a.AgentState() != api.AgentStateExited {
					t.Fatalf("expected agent to exit")
				}
			},
		},
		{
			name:   "empty input exits",
			query:  "",
			expect: "It has been a pleasure assisting you. Have a great day!",
			expectations: func(t *testing.T) *Agent {
				a := &Agent{}
				a.session = &api.Session{}
				return a
			},
			verify: func(t *testing.T, a *Agent, _ string) {
				if a.AgentState() != api.AgentStateExited {
					t.Fatalf("expected agent to exit")
				}
			},
		},
		{
			name:   "model",
			query:  "model",
			expect: "Current model is `test-model`",
			expectations: func(t *testing.T) *Agent {
				a := &Agent{Model: "test-model"}
				a.session = &api.Session{}
				return a
			},
		},
		{
			name:   "models",
			query:  "models",
			expect: "Available models:\n\n  - a\n  - b\n\n",
			expectations: func(t *testing.T) *Agent {
				ctrl := gomock.NewController(t)
				t.Cleanup(ctrl.Finish)
				client := mocks.NewMockClient(ctrl)
				client.EXPECT().ListModels(ctx).Return([]string{"a", "b"}, nil)

				a := &Agent{LLM: client}
				a.session = &api.Session{}
				return a
			},
		},
		{
			name:   "tools",
			query:  "tools",
			expect: "Available tools:",
			expectations: func(t *testing.T) *Agent {
				ctrl := gomock.NewController(t)
				t.Cleanup(ctrl.Finish)

				mt := mocks.NewMockTool(ctrl)
				mt.EXPECT().Name().Return("mocktool").AnyTimes()
				mt.EXPECT().FunctionDefinition().Return(&llm.FunctionDefinition{
					Name:        "mocktool",
					Description: "Mocked tool for tests",
				}).AnyTimes()

				a := &Agent{}

				a.Tools.Init()
				a.Tools.RegisterTool(mt)
				a.session = &api.Session{}
				return a
			},
			verify: func(t *testing.T, _ *Agent, answer string) {
				if !strings.Contains(answer, "mocktool") {
					t.Fatalf("expected mock tool in output: %q", answer)
				}
			},
		},
		{
			name:   "usage",
			query:  "usage",
			expect: "Session token usage:",
			expectations: func(t *testing.T) *Agent {
				a := &Agent{}
				a.session = &api.Session{}
				a.session.Usage.Add(120, 30, 0)
				return a
			},
			verify: func(t *testing.T, _ *Agent, answer string) {
				if !strings.Contains(answer, "total: 150") {
					t.Fatalf("expected reconstructed total in output: %q", answer)
				}
			},
		},
		{
			name:   "session",
			query:  "session",
			expect: "Current session:",
			expectations: func(t *testing.T) *Agent {
				oldHome := os.Getenv("HOME")
				t.Cleanup(func() { os.Setenv("HOME", oldHome) })
				home := t.TempDir()
				os.Setenv("HOME", home)

				manager, err := sessions.NewSessionManager()
				if err != nil {
					t.Fatalf("creating session manager: %v", err)
				}
				sess, err := manager.NewSession(sessions.Metadata{ProviderID: "p", ModelID: "m"})
				if err != nil {
					t.Fatalf("creating session: %v", err)
				}
				a := &Agent{ChatMessageStore: sess}
				a.session = &api.Session{ChatMessageStore: sess}
				return a
			},
			verify: func(t *testing.T, _ *Agent, answer string) {
				if !strings.Contains(answer, "ID:") {
					t.Fatalf("expected session info, got %q", answer)
				}
			},
		},
		{
			name:   "sessions",
			query:  "sessions",
			expect: "Available sessions:",
			expectations: func(t *testing.T) *Agent {
				oldHome := os.Getenv("HOME")
				t.Cleanup(func() { os.Setenv("HOME", oldHome) })
				home := t.TempDir()
				os.Setenv("HOME", home)

				manager, err := sessions.NewSessionManager()
				if err != nil {
					t.Fatalf("creating session manager: %v", err)
				}
				if _, err := manager.NewSession(sessions.Metadata{ProviderID: "p1", ModelID: "m1"}); err != nil {
					t.Fatalf("creating session: %v", err)
				}
				if _, err := manager.NewSession(sessions.Metadata{ProviderID: "p2", ModelID: "m2"}); err != nil {
					t.Fatalf("creating session: %v", err)
				}

				a := &Agent{}
				a.session = &api.Session{ChatMessageStore: sessions.NewInMemoryChatStore()}
				return a
			},
			verify: func(t *testing.T, _ *Agent, answer string) {
				if !strings.Contains(answer, "Available sessions:") {
					t.Fatalf("unexpected answer: %q", answer)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.expectations(t)
			ans, handled, err := a.handleMetaQuery(ctx, tt.query)
			if err != nil {
				t.Fatalf("handleMetaQuery returned error: %v", err)
			}
			if !handled {
				t.Fatalf("expected query %q to be handled", tt.query)
			}
			if tt.expect != "" && !strings.Contains(ans, tt.expect) {
				t.Fatalf("expected %q to contain %q", ans, tt.expect)
			}
			if tt.verify != nil {
				tt.verify(t, a, ans)
			}
		})
	}
}

// newTestAgent builds an agent wired to the given chat, with buffered
// channels so tests can drive the conversation without a frontend.
func newTestAgent(t *testing.T, chat llm.Chat) *Agent {
	t.Helper()

	store := sessions.NewInMemoryChatStore()
	a := &Agent{
		Model:            "test-model",
		MaxIterations:    5,
		Recorder:         &journal.LogRecorder{},
		ChatMessageStore: store,
	}
	a.Tools.Init()
	a.session = &api.Session{ChatMessageStore: store}
	a.llmChat = chat
	a.Input = make(chan any, 10)
	a.Output = make(chan any, 50)
	return a
}

// drainOutput collects everything the agent emits until it exits.
func drainOutput(t *testing.T, a *Agent) []*api.Message {
	t.Helper()

	var messages []*api.Message
	for raw := range a.Output {
		msg, ok := raw.(*api.Message)
		if !ok {
			t.Fatalf("unexpected output type %T", raw)
		}
		messages = append(messages, msg)
	}
	return messages
}

func textStream(usage any, chunks ...string) llm.ChatResponseIterator {
	return func(yield func(llm.ChatResponse, error) bool) {
		for i, chunk := range chunks {
			response := fakeResponse{
				candidates: []llm.Candidate{fakeCandidate{parts: []llm.Part{fakePart{text: chunk}}}},
			}
			if i == len(chunks)-1 {
				response.usage = usage
			}
			if !yield(response, nil) {
				return
			}
		}
	}
}

func callStream(id, name string, args map[string]any) llm.ChatResponseIterator {
	return func(yield func(llm.ChatResponse, error) bool) {
		call := llm.FunctionCall{ID: id, Name: name, Arguments: args}
		yield(fakeResponse{
			candidates: []llm.Candidate{fakeCandidate{parts: []llm.Part{fakePart{calls: []llm.FunctionCall{call}}}}},
		}, nil)
	}
}

type fakeResponse struct {
	candidates []llm.Candidate
	usage      any
}

func (r fakeResponse) UsageMetadata() any          { return r.usage }
func (r fakeResponse) Candidates() []llm.Candidate { return r.candidates }

type fakeCandidate struct{ parts []llm.Part }

func (c fakeCandidate) String() string    { return "fake candidate" }
func (c fakeCandidate) Parts() []llm.Part { return c.parts }

type fakePart struct {
	text  string
	calls []llm.FunctionCall
}

func (p fakePart) AsText() (string, bool) { return p.text, p.text != "" }
func (p fakePart) AsFunctionCalls() ([]llm.FunctionCall, bool) {
	return p.calls, len(p.calls) > 0
}

func TestRunExitTokenNeverCallsModel(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	// No expectations: any model call fails the test.
	chat := mocks.NewMockChat(ctrl)
	a := newTestAgent(t, chat)

	if err := a.Run(ctx, ""); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	a.Input <- &api.UserInputResponse{Query: "Q"}

	messages := drainOutput(t, a)

	var sawInputRequest, sawFarewell bool
	for _, msg := range messages {
		if msg.Type == api.MessageTypeUserInputRequest && msg.Payload == ">>>" {
			sawInputRequest = true
		}
		if payload, ok := msg.Payload.(string); ok && strings.Contains(payload, "It has been a pleasure assisting you.") {
			sawFarewell = true
		}
	}
	if !sawInputRequest {
		t.Errorf("expected a %q input request message", ">>>")
	}
	if !sawFarewell {
		t.Errorf("expected a farewell message, got %+v", messages)
	}
	if a.AgentState() != api.AgentStateExited {
		t.Errorf("expected state %q, got %q", api.AgentStateExited, a.AgentState())
	}
}

func TestRunOnceAnswersAndExits(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	const query = "why is the sky blue?"

	chat := mocks.NewMockChat(ctrl)
	chat.EXPECT().SendStreaming(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, contents ...any) (llm.ChatResponseIterator, error) {
			if len(contents) != 1 || contents[0] != query {
				t.Errorf("unexpected chat contents: %+v", contents)
			}
			usage := openai.CompletionUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}
			return textStream(usage, "Rayleigh ", "scattering."), nil
		})

	a := newTestAgent(t, chat)
	a.RunOnce = true

	if err := a.Run(ctx, query); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	messages := drainOutput(t, a)

	var answer string
	for _, msg := range messages {
		if msg.Source == api.MessageSourceModel && msg.Type == api.MessageTypeText {
			answer = msg.Payload.(string)
		}
	}
	if answer != "Rayleigh scattering." {
		t.Errorf("expected assembled answer, got %q", answer)
	}
	if a.AgentState() != api.AgentStateExited {
		t.Errorf("expected state %q, got %q", api.AgentStateExited, a.AgentState())
	}
	if got := a.Session().Usage.TotalTokens; got != 10 {
		t.Errorf("expected 10 total tokens, got %d", got)
	}
}

func TestProcessQueryRunsToolCalls(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	args := map[string]any{"query": "langchain"}

	mt := mocks.NewMockTool(ctrl)
	mt.EXPECT().Name().Return("mock_search").AnyTimes()
	mt.EXPECT().FunctionDefinition().Return(&llm.FunctionDefinition{
		Name:        "mock_search",
		Description: "Search developer documentation",
	}).AnyTimes()
	mt.EXPECT().IsInteractive(gomock.Any()).Return(false, nil)
	mt.EXPECT().Run(gomock.Any(), gomock.Eq(args)).Return("LangChain is a framework.", nil)

	chat := mocks.NewMockChat(ctrl)
	first := chat.EXPECT().SendStreaming(gomock.Any(), gomock.Any()).
		Return(callStream("call-1", "mock_search", args), nil)
	chat.EXPECT().SendStreaming(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, contents ...any) (llm.ChatResponseIterator, error) {
			if len(contents) != 1 {
				t.Fatalf("expected one function result, got %d", len(contents))
			}
			result, ok := contents[0].(llm.FunctionCallResult)
			if !ok {
				t.Fatalf("expected FunctionCallResult, got %T", contents[0])
			}
			if result.ID != "call-1" || result.Name != "mock_search" {
				t.Errorf("unexpected result identity: %+v", result)
			}
			if result.Result["output"] != "LangChain is a framework." {
				t.Errorf("unexpected result payload: %+v", result.Result)
			}
			return textStream(nil, "LangChain is a framework for building LLM applications."), nil
		}).After(first)

	a := newTestAgent(t, chat)
	a.Tools.RegisterTool(mt)

	if err := a.processQuery(ctx, "what is langchain?"); err != nil {
		t.Fatalf("processQuery returned error: %v", err)
	}

	var sawRequest, sawAnswer bool
	for _, msg := range a.Session().AllMessages() {
		if msg.Type == api.MessageTypeToolCallRequest {
			if payload := msg.Payload.(string); !strings.Contains(payload, "mock_search") {
				t.Errorf("unexpected tool call payload: %q", payload)
			}
			sawRequest = true
		}
		if msg.Source == api.MessageSourceModel && msg.Type == api.MessageTypeText {
			sawAnswer = true
		}
	}
	if !sawRequest {
		t.Error("expected a tool-call-request message")
	}
	if !sawAnswer {
		t.Error("expected a final answer message")
	}
}

func TestProcessQueryToolConfirmationDeclined(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	remote := tools.NewMCPTool("docs", "docs_lookup", "Look up internal docs", &llm.FunctionDefinition{
		Name:        "docs_lookup",
		Description: "Look up internal docs",
	}, nil)

	args := map[string]any{"topic": "deploys"}

	chat := mocks.NewMockChat(ctrl)
	first := chat.EXPECT().SendStreaming(gomock.Any(), gomock.Any()).
		Return(callStream("call-9", "docs_lookup", args), nil)
	chat.EXPECT().SendStreaming(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, contents ...any) (llm.ChatResponseIterator, error) {
			result, ok := contents[0].(llm.FunctionCallResult)
			if !ok {
				t.Fatalf("expected FunctionCallResult, got %T", contents[0])
			}
			if result.Result["status"] != "declined" {
				t.Errorf("expected declined status, got %+v", result.Result)
			}
			if result.Result["retryable"] != false {
				t.Errorf("expected retryable=false, got %+v", result.Result)
			}
			return textStream(nil, "Understood, skipping that lookup."), nil
		}).After(first)

	a := newTestAgent(t, chat)
	a.Tools.RegisterTool(remote)

	// The reply is queued before the agent asks; the buffered Input
	// channel stands in for the frontend.
	a.Input <- &api.UserChoiceResponse{Choice: 3}

	if err := a.processQuery(ctx, "look up the deploy docs"); err != nil {
		t.Fatalf("processQuery returned error: %v", err)
	}

	var sawChoiceRequest, sawSkipNotice bool
	for _, msg := range a.Session().AllMessages() {
		if msg.Type == api.MessageTypeUserChoiceRequest {
			req := msg.Payload.(*api.UserChoiceRequest)
			if len(req.Options) != 3 {
				t.Errorf("expected 3 options, got %+v", req.Options)
			}
			sawChoiceRequest = true
		}
		if payload, ok := msg.Payload.(string); ok && strings.Contains(payload, "Operation was skipped.") {
			sawSkipNotice = true
		}
	}
	if !sawChoiceRequest {
		t.Error("expected a user-choice-request message")
	}
	if !sawSkipNotice {
		t.Error("expected the skip notice message")
	}
}

func TestDispatchErrorContinuesLoop(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	chat := mocks.NewMockChat(ctrl)
	chat.EXPECT().SendStreaming(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("model is overloaded"))

	a := newTestAgent(t, chat)

	if exited := a.dispatch(ctx, "hello"); exited {
		t.Fatal("expected dispatch to keep the conversation alive")
	}

	messages := a.Session().AllMessages()
	last := messages[len(messages)-1]
	if last.Type != api.MessageTypeError {
		t.Fatalf("expected an error message, got %+v", last)
	}
	if payload := last.Payload.(string); !strings.Contains(payload, "model is overloaded") {
		t.Errorf("expected the provider error inline, got %q", payload)
	}
	if a.AgentState() != api.AgentStateDone {
		t.Errorf("expected state %q, got %q", api.AgentStateDone, a.AgentState())
	}
}
