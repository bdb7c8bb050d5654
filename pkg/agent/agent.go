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
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/docs-ai/docs-ai/pkg/api"
	"github.com/docs-ai/docs-ai/pkg/journal"
	"github.com/docs-ai/docs-ai/pkg/llm"
	"github.com/docs-ai/docs-ai/pkg/mcp"
	"github.com/docs-ai/docs-ai/pkg/sessions"
	"github.com/docs-ai/docs-ai/pkg/tools"
)

//go:embed systemprompt_template_default.txt
var defaultSystemPromptTemplate string

// Agent runs the conversation between the user, the model and the tools.
// It communicates with the frontends over the Input and Output channels;
// the UIs render messages from Output and reply on Input.
type Agent struct {
	LLM   llm.Client
	Model string

	// PromptTemplateFile allows specifying a custom template file
	PromptTemplateFile string
	// ExtraPromptPaths allows specifying additional prompt templates
	// to be combined with PromptTemplateFile
	ExtraPromptPaths []string

	// SearchSite restricts the web_search tool to a single site when non-empty.
	SearchSite string

	RemoveWorkDir bool

	MaxIterations int

	SkipPermissions bool

	Tools tools.Tools

	// MCPClientEnabled indicates whether MCP client mode is enabled
	MCPClientEnabled bool

	// Recorder captures events for diagnostics
	Recorder journal.Recorder

	// RunOnce runs a single query and exits, without the interactive loop.
	RunOnce bool

	// InitialQuery is the first query to run, if any.
	InitialQuery string

	// ChatMessageStore persists the conversation history.
	ChatMessageStore api.ChatMessageStore

	// Input receives *api.UserInputResponse and *api.UserChoiceResponse
	// replies from the frontend.
	Input chan any

	// Output carries *api.Message values to the frontend. It is closed
	// when the agent exits.
	Output chan any

	session   *api.Session
	sessionMu sync.Mutex

	llmChat llm.Chat

	mcpManager *mcp.Manager

	workDir string
}

func (a *Agent) Init(ctx context.Context) error {
	log := klog.FromContext(ctx)

	if a.ChatMessageStore == nil {
		a.ChatMessageStore = sessions.NewInMemoryChatStore()
	}

	sessionID := uuid.NewString()
	if s, ok := a.ChatMessageStore.(*sessions.Session); ok {
		sessionID = s.ID
	}
	now := time.Now()
	a.session = &api.Session{
		ID:               sessionID,
		AgentState:       api.AgentStateInitializing,
		CreatedAt:        now,
		LastModified:     now,
		ChatMessageStore: a.ChatMessageStore,
	}

	a.Input = make(chan any, 10)
	a.Output = make(chan any, 10)

	// Create a temporary working directory for tool scratch space
	workDir, err := os.MkdirTemp("", "docs-ai-workdir-*")
	if err != nil {
		log.Error(err, "Failed to create temporary working directory")
		return err
	}
	log.Info("Created temporary working directory", "workDir", workDir)
	a.workDir = workDir

	// MCP tools must be registered before we hand the tool schemas to the
	// model below.
	if a.MCPClientEnabled {
		if err := a.InitializeMCPClient(ctx); err != nil {
			klog.Warningf("Failed to initialize MCP client: %v", err)
		}
	}
	if err := a.UpdateMCPStatus(ctx, a.MCPClientEnabled); err != nil {
		klog.Warningf("Failed to update MCP status: %v", err)
	}

	systemPrompt, err := a.generatePrompt(ctx, defaultSystemPromptTemplate, PromptData{
		Tools:      a.Tools,
		SearchSite: a.SearchSite,
	})
	if err != nil {
		return fmt.Errorf("generating system prompt: %w", err)
	}

	a.llmChat = llm.NewRetryChat(
		a.LLM.StartChat(systemPrompt, a.Model),
		llm.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 10 * time.Second,
			MaxBackoff:     60 * time.Second,
			BackoffFactor:  2,
			Jitter:         true,
		},
	)

	var functionDefinitions []*llm.FunctionDefinition
	for _, tool := range a.Tools.AllTools() {
		functionDefinitions = append(functionDefinitions, tool.FunctionDefinition())
	}
	// Sort function definitions to help KV cache reuse
	sort.Slice(functionDefinitions, func(i, j int) bool {
		return functionDefinitions[i].Name < functionDefinitions[j].Name
	})
	if err := a.llmChat.SetFunctionDefinitions(functionDefinitions); err != nil {
		return fmt.Errorf("setting function definitions: %w", err)
	}

	// Replay a resumed session into the chat so the model sees the history.
	if history := a.ChatMessageStore.ChatMessages(); len(history) > 0 {
		if err := a.llmChat.Initialize(history); err != nil {
			return fmt.Errorf("initializing chat with session history: %w", err)
		}
	}

	a.setAgentState(api.AgentStateIdle)
	return nil
}

func (a *Agent) Close() error {
	if a.workDir != "" && a.RemoveWorkDir {
		if err := os.RemoveAll(a.workDir); err != nil {
			klog.Warningf("error cleaning up directory %q: %v", a.workDir, err)
		}
	}
	a.CloseMCPClient()
	return nil
}

// Session exposes the session for frontends to render.
func (a *Agent) Session() *api.Session {
	return a.session
}

func (a *Agent) AgentState() api.AgentState {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	return a.session.AgentState
}

func (a *Agent) setAgentState(state api.AgentState) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	a.session.AgentState = state
	a.session.LastModified = time.Now()
}

// Run starts the conversation loop in the background. The loop serves
// the initial query first (when there is one) and then reads queries
// from the Input channel until the user exits or ctx is cancelled.
func (a *Agent) Run(ctx context.Context, initialQuery string) error {
	if a.session == nil {
		return fmt.Errorf("agent is not initialized")
	}
	go a.run(ctx, initialQuery)
	return nil
}

func (a *Agent) run(ctx context.Context, initialQuery string) {
	defer close(a.Output)

	if query := strings.TrimSpace(initialQuery); query != "" {
		if exited := a.dispatch(ctx, query); exited {
			return
		}
	}

	if a.RunOnce {
		a.setAgentState(api.AgentStateExited)
		return
	}

	for {
		query, err := a.waitForUserInput(ctx)
		if err != nil {
			return
		}
		if exited := a.dispatch(ctx, query); exited {
			return
		}
	}
}

// dispatch serves a single user query. It reports whether the agent
// should exit the conversation loop.
func (a *Agent) dispatch(ctx context.Context, query string) bool {
	if query != "" {
		a.addMessage(ctx, api.MessageSourceUser, api.MessageTypeText, query)
	}

	if answer, handled, err := a.handleMetaQuery(ctx, query); handled {
		if err != nil {
			a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeError, err.Error())
			return false
		}
		a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeText, answer)
		return a.AgentState() == api.AgentStateExited
	}

	if err := a.processQuery(ctx, query); err != nil {
		if ctx.Err() != nil {
			return true
		}
		a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeError, err.Error())
	}
	a.setAgentState(api.AgentStateDone)
	return false
}

// waitForUserInput asks the frontend for the next query and blocks
// until one arrives.
func (a *Agent) waitForUserInput(ctx context.Context) (string, error) {
	a.setAgentState(api.AgentStateWaitingForInput)
	a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeUserInputRequest, ">>>")

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case raw, ok := <-a.Input:
			if !ok {
				return "", fmt.Errorf("input channel closed")
			}
			switch input := raw.(type) {
			case *api.UserInputResponse:
				return strings.TrimSpace(input.Query), nil
			default:
				klog.Warningf("ignoring unexpected input %T while waiting for a query", raw)
			}
		}
	}
}

// waitForUserChoice asks the frontend to pick one of the options in req
// and returns the 1-based index of the selection.
func (a *Agent) waitForUserChoice(ctx context.Context, req *api.UserChoiceRequest) (int, error) {
	a.setAgentState(api.AgentStateWaitingForInput)
	a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeUserChoiceRequest, req)
	defer a.setAgentState(api.AgentStateRunning)

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case raw, ok := <-a.Input:
			if !ok {
				return 0, fmt.Errorf("input channel closed")
			}
			switch input := raw.(type) {
			case *api.UserChoiceResponse:
				if input.Choice < 1 || input.Choice > len(req.Options) {
					return 0, fmt.Errorf("invalid choice: %d", input.Choice)
				}
				return input.Choice, nil
			case *api.UserInputResponse:
				// Plain-text replies from the terminal frontend.
				switch strings.ToLower(strings.TrimSpace(input.Query)) {
				case "1", "yes", "y":
					return 1, nil
				case "2":
					return 2, nil
				case "3", "no", "n":
					return 3, nil
				default:
					klog.Warningf("ignoring unrecognized choice reply %q", input.Query)
				}
			default:
				klog.Warningf("ignoring unexpected input %T while waiting for a choice", raw)
			}
		}
	}
}

// addMessage records a message in the session and forwards it to the
// frontend.
func (a *Agent) addMessage(ctx context.Context, source api.MessageSource, msgType api.MessageType, payload any) *api.Message {
	msg := &api.Message{
		ID:        uuid.NewString(),
		Source:    source,
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	a.sessionMu.Lock()
	if err := a.session.ChatMessageStore.AddChatMessage(msg); err != nil {
		klog.Warningf("failed to persist chat message: %v", err)
	}
	a.session.LastModified = msg.Timestamp
	a.sessionMu.Unlock()

	select {
	case a.Output <- msg:
	case <-ctx.Done():
	}
	return msg
}

// processQuery executes a chat-based agentic loop with the LLM using
// function calling.
func (a *Agent) processQuery(ctx context.Context, query string) error {
	log := klog.FromContext(ctx)
	log.Info("Starting chat loop for query:", "query", query)

	a.setAgentState(api.AgentStateRunning)

	// currChatContent tracks chat content that needs to be sent
	// to the LLM in each iteration of the agentic loop below
	var currChatContent []any

	// Set the initial message to start the conversation
	currChatContent = []any{query}

	currentIteration := 0
	maxIterations := a.MaxIterations

	for currentIteration < maxIterations {
		log.Info("Starting iteration", "iteration", currentIteration)

		a.Recorder.Write(ctx, &journal.Event{
			Timestamp: time.Now(),
			Action:    "llm-chat",
			Payload:   []any{currChatContent},
		})

		stream, err := a.llmChat.SendStreaming(ctx, currChatContent...)
		if err != nil {
			return err
		}

		// Clear our "response" now that we sent the last response
		currChatContent = nil

		var functionCalls []llm.FunctionCall
		var modelText strings.Builder
		var lastUsage any

		for response, err := range stream {
			if err != nil {
				return fmt.Errorf("reading streaming LLM response: %w", err)
			}
			if response == nil {
				// end of streaming response
				break
			}
			a.Recorder.Write(ctx, &journal.Event{
				Timestamp: time.Now(),
				Action:    "llm-response",
				Payload:   response,
			})

			if metadata := response.UsageMetadata(); metadata != nil {
				lastUsage = metadata
			}

			if len(response.Candidates()) == 0 {
				log.Error(nil, "No candidates in response")
				return fmt.Errorf("no candidates in LLM response")
			}

			candidate := response.Candidates()[0]

			for _, part := range candidate.Parts() {
				if text, ok := part.AsText(); ok {
					modelText.WriteString(text)
				}
				if calls, ok := part.AsFunctionCalls(); ok && len(calls) > 0 {
					log.Info("function calls", "calls", calls)
					functionCalls = append(functionCalls, calls...)
				}
			}
		}

		// Streaming usage payloads are cumulative for the call, so only
		// the last sample is folded into the session totals.
		if usage, ok := llm.UsageFromMetadata(lastUsage); ok {
			a.sessionMu.Lock()
			a.session.Usage.Add(usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
			a.sessionMu.Unlock()
		}

		if text := modelText.String(); strings.TrimSpace(text) != "" {
			a.addMessage(ctx, api.MessageSourceModel, api.MessageTypeText, text)
		}

		for _, call := range functionCalls {
			result, err := a.executeFunctionCall(ctx, call)
			if err != nil {
				return err
			}
			currChatContent = append(currChatContent, result)
		}

		// If no function calls were made, we're done
		if len(functionCalls) == 0 {
			log.Info("No function calls were made, so most likely the task is completed, so we're done.")
			return nil
		}

		currentIteration++
	}

	log.Info("Max iterations reached", "iterations", maxIterations)
	a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeError,
		fmt.Sprintf("Sorry, couldn't complete the task after %d iterations.", maxIterations))
	return nil
}

// executeFunctionCall runs a single tool call requested by the model and
// builds the result to send back on the next iteration. Tool failures
// are returned to the model as error results rather than ending the
// round, so the model can adjust its approach.
func (a *Agent) executeFunctionCall(ctx context.Context, call llm.FunctionCall) (llm.FunctionCallResult, error) {
	log := klog.FromContext(ctx)

	errorResult := func(message string) llm.FunctionCallResult {
		return llm.FunctionCallResult{
			ID:     call.ID,
			Name:   call.Name,
			Result: map[string]any{"error": message},
		}
	}

	tool := a.Tools.Lookup(call.Name)
	if tool == nil {
		log.Info("model requested unknown tool", "name", call.Name)
		return errorResult(fmt.Sprintf("tool %q not recognized", call.Name)), nil
	}

	isInteractive, err := tool.IsInteractive(call.Arguments)
	if isInteractive {
		a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeError, err.Error())
		return errorResult(err.Error()), nil
	}

	a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeToolCallRequest, describeToolCall(call))

	if !a.SkipPermissions && requiresConfirmation(tool) {
		choice, err := a.waitForUserChoice(ctx, &api.UserChoiceRequest{
			Prompt: "Do you want to proceed ?",
			Options: []api.UserChoiceOption{
				{Label: "Yes", Value: "yes"},
				{Label: "Yes, and don't ask me again", Value: "always"},
				{Label: "No", Value: "no"},
			},
		})
		if err != nil {
			return llm.FunctionCallResult{}, fmt.Errorf("reading confirmation: %w", err)
		}
		switch choice {
		case 1:
			// Proceed with the operation
		case 2:
			a.SkipPermissions = true
		case 3:
			a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeText,
				"Operation was skipped. User declined to run this operation.")
			return llm.FunctionCallResult{
				ID:   call.ID,
				Name: call.Name,
				Result: map[string]any{
					"error":     "User declined to run this operation.",
					"status":    "declined",
					"retryable": false,
				},
			}, nil
		}
	}

	ctx = journal.ContextWithRecorder(ctx, a.Recorder)
	output, err := a.Tools.InvokeTool(ctx, call.Name, call.Arguments, tools.InvokeToolOptions{
		WorkDir:    a.workDir,
		SearchSite: a.SearchSite,
	})
	if err != nil {
		log.Error(err, "tool call failed", "name", call.Name)
		a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeError,
			fmt.Sprintf("%s failed: %v", call.Name, err))
		return errorResult(err.Error()), nil
	}

	a.addMessage(ctx, api.MessageSourceAgent, api.MessageTypeToolCallResponse, toolResultText(output))

	// MCP tools return their output as plain text; everything else is
	// converted going via JSON.
	var result map[string]any
	switch v := output.(type) {
	case string:
		result = map[string]any{"output": v}
	default:
		result, err = tools.ToolResultToMap(output)
		if err != nil {
			return llm.FunctionCallResult{}, err
		}
	}

	return llm.FunctionCallResult{
		ID:     call.ID,
		Name:   call.Name,
		Result: result,
	}, nil
}

// requiresConfirmation reports whether a tool run needs the user's
// approval first. MCP servers run outside our process and may have side
// effects we cannot see; the built-in web tools are read-only.
func requiresConfirmation(tool tools.Tool) bool {
	_, isMCP := tool.(*tools.MCPTool)
	return isMCP
}

func describeToolCall(call llm.FunctionCall) string {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		return call.Name
	}
	return fmt.Sprintf("%s(%s)", call.Name, string(args))
}

func toolResultText(output any) string {
	switch v := output.(type) {
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// handleMetaQuery serves the small command vocabulary that the agent
// answers directly, without involving the model. It reports whether the
// query was handled.
func (a *Agent) handleMetaQuery(ctx context.Context, query string) (string, bool, error) {
	switch strings.ToLower(strings.TrimSpace(query)) {
	case "", "q", "quit", "exit":
		a.setAgentState(api.AgentStateExited)
		return "It has been a pleasure assisting you. Have a great day!", true, nil

	case "clear", "reset":
		if err := a.session.ChatMessageStore.ClearChatMessages(); err != nil {
			return "", true, fmt.Errorf("clearing conversation: %w", err)
		}
		if a.llmChat != nil {
			if err := a.llmChat.Initialize([]*api.Message{}); err != nil {
				return "", true, fmt.Errorf("resetting chat: %w", err)
			}
		}
		return "Cleared the conversation.", true, nil

	case "model":
		return fmt.Sprintf("Current model is `%s`\n\n", a.Model), true, nil

	case "models":
		models, err := a.LLM.ListModels(ctx)
		if err != nil {
			return "", true, fmt.Errorf("listing models: %w", err)
		}
		var sb strings.Builder
		sb.WriteString("Available models:\n\n")
		for _, model := range models {
			fmt.Fprintf(&sb, "  - %s\n", model)
		}
		sb.WriteString("\n")
		return sb.String(), true, nil

	case "tools":
		var definitions []*llm.FunctionDefinition
		for _, tool := range a.Tools.AllTools() {
			definitions = append(definitions, tool.FunctionDefinition())
		}
		sort.Slice(definitions, func(i, j int) bool {
			return definitions[i].Name < definitions[j].Name
		})
		var sb strings.Builder
		sb.WriteString("Available tools:\n\n")
		for _, definition := range definitions {
			fmt.Fprintf(&sb, "  - %s: %s\n", definition.Name, definition.Description)
		}
		sb.WriteString("\n")
		return sb.String(), true, nil

	case "session":
		if s, ok := a.ChatMessageStore.(*sessions.Session); ok {
			info, err := s.String()
			if err != nil {
				return "", true, fmt.Errorf("reading session metadata: %w", err)
			}
			return info, true, nil
		}
		a.sessionMu.Lock()
		id := a.session.ID
		a.sessionMu.Unlock()
		return fmt.Sprintf("Current session:\n\nID: %s (in-memory, not persisted)\n\n", id), true, nil

	case "sessions":
		manager, err := sessions.NewSessionManager()
		if err != nil {
			return "", true, fmt.Errorf("opening sessions directory: %w", err)
		}
		list, err := manager.ListSessions()
		if err != nil {
			return "", true, fmt.Errorf("listing sessions: %w", err)
		}
		var sb strings.Builder
		sb.WriteString("Available sessions:\n\n")
		for _, session := range list {
			fmt.Fprintf(&sb, "  - %s\n", session.ID)
		}
		sb.WriteString("\n")
		return sb.String(), true, nil

	case "usage":
		a.sessionMu.Lock()
		usage := a.session.Usage
		a.sessionMu.Unlock()
		return fmt.Sprintf("Session token usage: %s\n\n", usage.String()), true, nil
	}

	return "", false, nil
}

// generatePrompt generates a prompt for LLM. It uses the prompt from the provided template file or default.
func (a *Agent) generatePrompt(_ context.Context, defaultPromptTemplate string, data PromptData) (string, error) {
	promptTemplate := defaultPromptTemplate
	if a.PromptTemplateFile != "" {
		content, err := os.ReadFile(a.PromptTemplateFile)
		if err != nil {
			return "", fmt.Errorf("error reading template file: %v", err)
		}
		promptTemplate = string(content)
	}

	for _, extraPromptPath := range a.ExtraPromptPaths {
		content, err := os.ReadFile(extraPromptPath)
		if err != nil {
			return "", fmt.Errorf("error reading extra prompt path: %v", err)
		}
		promptTemplate += "\n" + string(content)
	}

	tmpl, err := template.New("promptTemplate").Parse(promptTemplate)
	if err != nil {
		return "", fmt.Errorf("building template for prompt: %w", err)
	}

	var result strings.Builder
	err = tmpl.Execute(&result, &data)
	if err != nil {
		return "", fmt.Errorf("evaluating template for prompt: %w", err)
	}
	return result.String(), nil
}

// PromptData represents the structure of the data to be filled into the template.
type PromptData struct {
	Query      string
	Tools      tools.Tools
	SearchSite string
}

func (a *PromptData) ToolsAsJSON() string {
	var toolDefinitions []*llm.FunctionDefinition

	for _, tool := range a.Tools.AllTools() {
		toolDefinitions = append(toolDefinitions, tool.FunctionDefinition())
	}

	json, err := json.MarshalIndent(toolDefinitions, "", "  ")
	if err != nil {
		return ""
	}
	return string(json)
}

func (a *PromptData) ToolNames() string {
	return strings.Join(a.Tools.Names(), ", ")
}
