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

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/docs-ai/docs-ai/pkg/api"
)

const (
	geminiDefaultModel = "gemini-2.5-flash"
)

var geminiModel string

func init() {
	geminiModel = os.Getenv("GEMINI_MODEL")

	if err := RegisterProvider("gemini", geminiFactory); err != nil {
		klog.Fatalf("Failed to register gemini provider: %v", err)
	}
}

func geminiFactory(ctx context.Context, opts ClientOptions) (Client, error) {
	return NewGeminiClient(ctx, opts)
}

// NewGeminiClient builds a client for the Gemini API.
func NewGeminiClient(ctx context.Context, opts ClientOptions) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: createCustomHTTPClient(opts.SkipVerifySSL),
	})
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
	}, nil
}

// GeminiClient is a client for the Gemini API.
// It implements the Client interface.
type GeminiClient struct {
	client *genai.Client

	// responseSchema will constrain the output to match the given schema
	responseSchema *genai.Schema
}

var _ Client = &GeminiClient{}

// ListModels lists the models available in the Gemini API.
func (c *GeminiClient) ListModels(ctx context.Context) (modelNames []string, err error) {
	for model, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing gemini models: %w", err)
		}
		modelNames = append(modelNames, strings.TrimPrefix(model.Name, "models/"))
	}
	return modelNames, nil
}

// Close frees the resources used by the client.
func (c *GeminiClient) Close() error {
	// The genai client does not hold resources that need explicit cleanup.
	return nil
}

// SetResponseSchema constrains LLM responses to match the provided schema.
// Calling with nil will clear the current schema.
func (c *GeminiClient) SetResponseSchema(responseSchema *Schema) error {
	if responseSchema == nil {
		c.responseSchema = nil
		return nil
	}

	geminiSchema, err := toGeminiSchema(responseSchema)
	if err != nil {
		return err
	}

	c.responseSchema = geminiSchema
	return nil
}

func (c *GeminiClient) GenerateCompletion(ctx context.Context, request *CompletionRequest) (CompletionResponse, error) {
	log := klog.FromContext(ctx)

	model := request.Model
	if model == "" {
		model = getGeminiModel("")
	}

	config := &genai.GenerateContentConfig{}
	if c.responseSchema != nil {
		config.ResponseSchema = c.responseSchema
		config.ResponseMIMEType = "application/json"
	}

	log.Info("sending GenerateContent request to gemini", "model", model)
	geminiResponse, err := c.client.Models.GenerateContent(ctx, model, genai.Text(request.Prompt), config)
	if err != nil {
		return nil, err
	}

	if len(geminiResponse.Candidates) == 0 {
		return nil, fmt.Errorf("got no responses from gemini")
	}

	if len(geminiResponse.Candidates) > 1 {
		log.Info("only considering first candidate")
	}
	var response strings.Builder
	candidate := geminiResponse.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				return nil, fmt.Errorf("unexpected non-text content part in completion response")
			}
			if response.Len() != 0 {
				response.WriteString("\n")
			}
			response.WriteString(part.Text)
		}
	}

	return &GeminiCompletionResponse{geminiResponse: geminiResponse, text: response.String()}, nil
}

// StartChat starts a new chat with the model.
func (c *GeminiClient) StartChat(systemPrompt, model string) Chat {
	selectedModel := getGeminiModel(model)
	klog.V(1).Infof("Starting new Gemini chat session with model: %s", selectedModel)

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	} else {
		klog.Warningf("systemPrompt not provided")
	}

	if c.responseSchema != nil {
		config.ResponseSchema = c.responseSchema
		config.ResponseMIMEType = "application/json"
	}

	return &geminiChatSession{
		client:  c.client,
		model:   selectedModel,
		config:  config,
		history: []*genai.Content{},
	}
}

// geminiChatSession is a chat with the model.
// It implements the Chat interface.
// History is managed here rather than by the SDK chat helper, so it can
// be rebuilt from a persisted session via Initialize.
type geminiChatSession struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
}

var _ Chat = (*geminiChatSession)(nil)

// SetFunctionDefinitions sets the function definitions for the chat.
// This allows the LLM to call user-defined functions.
func (cs *geminiChatSession) SetFunctionDefinitions(functionDefinitions []*FunctionDefinition) error {
	var geminiFunctionDefinitions []*genai.FunctionDeclaration
	for _, functionDefinition := range functionDefinitions {
		parameters, err := toGeminiSchema(functionDefinition.Parameters)
		if err != nil {
			return err
		}
		geminiFunctionDefinitions = append(geminiFunctionDefinitions, &genai.FunctionDeclaration{
			Name:        functionDefinition.Name,
			Description: functionDefinition.Description,
			Parameters:  parameters,
		})
	}

	cs.config.Tools = []*genai.Tool{
		{FunctionDeclarations: geminiFunctionDefinitions},
	}
	return nil
}

// partsFromContents converts Send arguments into gemini content parts.
func (cs *geminiChatSession) partsFromContents(contents []any) ([]*genai.Part, error) {
	var geminiParts []*genai.Part
	for _, content := range contents {
		switch v := content.(type) {
		case string:
			geminiParts = append(geminiParts, &genai.Part{Text: v})
		case FunctionCallResult:
			geminiParts = append(geminiParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       v.ID,
					Name:     v.Name,
					Response: v.Result,
				},
			})
		default:
			return nil, fmt.Errorf("unexpected type of content: %T", content)
		}
	}
	return geminiParts, nil
}

// Send sends a message to the model and appends the exchange to the history.
func (cs *geminiChatSession) Send(ctx context.Context, contents ...any) (ChatResponse, error) {
	log := klog.FromContext(ctx)
	log.Info("sending LLM request", "user", contents)

	geminiParts, err := cs.partsFromContents(contents)
	if err != nil {
		return nil, err
	}
	cs.history = append(cs.history, genai.NewContentFromParts(geminiParts, genai.RoleUser))

	geminiResponse, err := cs.client.Models.GenerateContent(ctx, cs.model, cs.history, cs.config)
	if err != nil {
		return nil, err
	}

	if len(geminiResponse.Candidates) > 0 && geminiResponse.Candidates[0].Content != nil {
		cs.history = append(cs.history, geminiResponse.Candidates[0].Content)
	}

	return &GeminiChatResponse{geminiResponse: geminiResponse}, nil
}

// SendStreaming sends a message and streams back response chunks.
func (cs *geminiChatSession) SendStreaming(ctx context.Context, contents ...any) (ChatResponseIterator, error) {
	log := klog.FromContext(ctx)
	log.Info("sending streaming LLM request", "user", contents)

	geminiParts, err := cs.partsFromContents(contents)
	if err != nil {
		return nil, err
	}
	cs.history = append(cs.history, genai.NewContentFromParts(geminiParts, genai.RoleUser))

	stream := cs.client.Models.GenerateContentStream(ctx, cs.model, cs.history, cs.config)

	return func(yield func(ChatResponse, error) bool) {
		var accumulated []*genai.Part

		for chunk, err := range stream {
			if err != nil {
				yield(nil, err)
				return
			}

			if len(chunk.Candidates) > 0 && chunk.Candidates[0].Content != nil {
				accumulated = append(accumulated, chunk.Candidates[0].Content.Parts...)
			}

			if !yield(&GeminiChatResponse{geminiResponse: chunk}, nil) {
				return
			}
		}

		// Append the full model turn to history once the stream completes.
		if len(accumulated) > 0 {
			cs.history = append(cs.history, genai.NewContentFromParts(accumulated, genai.RoleModel))
		}
	}, nil
}

// IsRetryableError returns true for quota and transient server errors.
func (cs *geminiChatSession) IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 409, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	return DefaultIsRetryableError(err)
}

// Initialize rebuilds the chat history from persisted session messages.
func (cs *geminiChatSession) Initialize(messages []*api.Message) error {
	history := []*genai.Content{}
	for _, msg := range messages {
		if msg.Type != api.MessageTypeText {
			continue
		}
		payload, ok := msg.Payload.(string)
		if !ok || payload == "" {
			continue
		}
		switch msg.Source {
		case api.MessageSourceUser:
			history = append(history, genai.NewContentFromText(payload, genai.RoleUser))
		case api.MessageSourceModel:
			history = append(history, genai.NewContentFromText(payload, genai.RoleModel))
		}
	}

	cs.history = history
	klog.V(1).Infof("Initialized Gemini chat session with %d messages from session history", len(history))
	return nil
}

// toGeminiSchema converts our generic Schema to a genai.Schema
func toGeminiSchema(schema *Schema) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	ret := &genai.Schema{
		Description: schema.Description,
		Required:    schema.Required,
	}

	switch schema.Type {
	case TypeObject:
		ret.Type = genai.TypeObject
	case TypeString:
		ret.Type = genai.TypeString
	case TypeArray:
		ret.Type = genai.TypeArray
	case TypeBoolean:
		ret.Type = genai.TypeBoolean
	case TypeNumber:
		ret.Type = genai.TypeNumber
	case TypeInteger:
		ret.Type = genai.TypeInteger
	default:
		return nil, fmt.Errorf("type %q not handled by genai.Schema", schema.Type)
	}
	if schema.Properties != nil {
		ret.Properties = make(map[string]*genai.Schema)
		for k, v := range schema.Properties {
			geminiValue, err := toGeminiSchema(v)
			if err != nil {
				return nil, err
			}
			ret.Properties[k] = geminiValue
		}
	}
	if schema.Items != nil {
		geminiValue, err := toGeminiSchema(schema.Items)
		if err != nil {
			return nil, err
		}
		ret.Items = geminiValue
	}
	return ret, nil
}

// GeminiChatResponse is a response from the Gemini API.
// It implements the ChatResponse interface.
type GeminiChatResponse struct {
	geminiResponse *genai.GenerateContentResponse
}

var _ ChatResponse = &GeminiChatResponse{}

func (r *GeminiChatResponse) MarshalJSON() ([]byte, error) {
	formatted := RecordChatResponse{
		Raw: r.geminiResponse,
	}
	return json.Marshal(&formatted)
}

// String returns a string representation of the response.
func (r *GeminiChatResponse) String() string {
	var response strings.Builder
	response.WriteString("{candidates=[")
	for i, candidate := range r.Candidates() {
		if i > 0 {
			response.WriteString(", ")
		}
		response.WriteString(candidate.String())
	}
	response.WriteString("]}")
	return response.String()
}

// UsageMetadata returns the usage metadata for the response.
func (r *GeminiChatResponse) UsageMetadata() any {
	if r.geminiResponse.UsageMetadata == nil {
		return nil
	}
	return r.geminiResponse.UsageMetadata
}

// Candidates returns the candidates for the response.
func (r *GeminiChatResponse) Candidates() []Candidate {
	var candidates []Candidate
	for _, candidate := range r.geminiResponse.Candidates {
		candidates = append(candidates, &GeminiCandidate{candidate: candidate})
	}
	return candidates
}

// GeminiCandidate is a candidate for the response.
// It implements the Candidate interface.
type GeminiCandidate struct {
	candidate *genai.Candidate
}

// String returns a string representation of the response.
func (r *GeminiCandidate) String() string {
	var response strings.Builder
	response.WriteString("[")
	for i, parts := range r.Parts() {
		if i > 0 {
			response.WriteString(", ")
		}
		text, ok := parts.AsText()
		if ok {
			response.WriteString(text)
		}
		functionCalls, ok := parts.AsFunctionCalls()
		if ok {
			response.WriteString("functionCalls=[")
			for _, functionCall := range functionCalls {
				response.WriteString(fmt.Sprintf("%q(args=%v)", functionCall.Name, functionCall.Arguments))
			}
			response.WriteString("]")
		}
	}
	response.WriteString("]")
	return response.String()
}

// Parts returns the parts of the candidate.
func (r *GeminiCandidate) Parts() []Part {
	var parts []Part
	if r.candidate.Content != nil {
		for _, part := range r.candidate.Content.Parts {
			parts = append(parts, &GeminiPart{part: part})
		}
	}
	return parts
}

// GeminiPart is a part of a candidate.
// It implements the Part interface.
type GeminiPart struct {
	part *genai.Part
}

// AsText returns the text of the part.
func (p *GeminiPart) AsText() (string, bool) {
	if p.part.Text != "" {
		return p.part.Text, true
	}
	return "", false
}

// AsFunctionCalls returns the function calls of the part.
func (p *GeminiPart) AsFunctionCalls() ([]FunctionCall, bool) {
	if p.part.FunctionCall == nil {
		return nil, false
	}
	return []FunctionCall{
		{
			ID:        p.part.FunctionCall.ID,
			Name:      p.part.FunctionCall.Name,
			Arguments: p.part.FunctionCall.Args,
		},
	}, true
}

type GeminiCompletionResponse struct {
	geminiResponse *genai.GenerateContentResponse
	text           string
}

var _ CompletionResponse = &GeminiCompletionResponse{}

func (r *GeminiCompletionResponse) MarshalJSON() ([]byte, error) {
	formatted := RecordCompletionResponse{
		Text: r.text,
		Raw:  r.geminiResponse,
	}
	return json.Marshal(&formatted)
}

func (r *GeminiCompletionResponse) Response() string {
	return r.text
}

func (r *GeminiCompletionResponse) UsageMetadata() any {
	if r.geminiResponse.UsageMetadata == nil {
		return nil
	}
	return r.geminiResponse.UsageMetadata
}

// getGeminiModel returns the model to use, preferring the explicit
// argument, then the GEMINI_MODEL env var, then the default.
func getGeminiModel(model string) string {
	if model != "" {
		return model
	}
	if geminiModel != "" {
		return geminiModel
	}
	return geminiDefaultModel
}
