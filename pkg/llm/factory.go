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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/docs-ai/docs-ai/pkg/api"
)

var globalRegistry registry

type registry struct {
	mutex     sync.Mutex
	providers map[string]FactoryFunc
}

// ClientOptions carries provider-independent construction options.
// URL is the parsed provider id, so factories can read host/path overrides
// from ids like "openai://api.example.com".
type ClientOptions struct {
	URL           *url.URL
	SkipVerifySSL bool
}

// Option mutates ClientOptions during NewClient.
type Option func(*ClientOptions)

// WithSkipVerifySSL disables TLS certificate verification on the
// provider's HTTP client. Intended for self-hosted endpoints with
// self-signed certificates.
func WithSkipVerifySSL() Option {
	return func(o *ClientOptions) {
		o.SkipVerifySSL = true
	}
}

type FactoryFunc func(ctx context.Context, opts ClientOptions) (Client, error)

func RegisterProvider(id string, factoryFunc FactoryFunc) error {
	return globalRegistry.RegisterProvider(id, factoryFunc)
}

func (r *registry) RegisterProvider(id string, factoryFunc FactoryFunc) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.providers == nil {
		r.providers = make(map[string]FactoryFunc)
	}
	_, exists := r.providers[id]
	if exists {
		return fmt.Errorf("provider %q is already registered", id)
	}
	r.providers[id] = factoryFunc
	return nil
}

func (r *registry) ListProviders() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *registry) NewClient(ctx context.Context, providerID string, opts ...Option) (Client, error) {
	// providerID can be just an ID, for example "openai" instead of "openai://"
	if !strings.Contains(providerID, "/") && !strings.Contains(providerID, ":") {
		providerID = providerID + "://"
	}

	u, err := url.Parse(providerID)
	if err != nil {
		return nil, fmt.Errorf("parsing provider id %q: %w", providerID, err)
	}

	clientOpts := ClientOptions{URL: u}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	factoryFunc := r.providers[u.Scheme]
	if factoryFunc == nil {
		return nil, fmt.Errorf("provider %q not registered (available providers: %s)", u.Scheme, strings.Join(r.ListProviders(), ", "))
	}

	return factoryFunc(ctx, clientOpts)
}

// NewClient builds a Client based on the LLM_CLIENT env var or the provided providerID.
// ProviderID (if not empty) overrides the provider from LLM_CLIENT env var.
func NewClient(ctx context.Context, providerID string, opts ...Option) (Client, error) {
	if providerID == "" {
		s := os.Getenv("LLM_CLIENT")
		if s == "" {
			return nil, fmt.Errorf("LLM_CLIENT is not set")
		}
		providerID = s
	}

	return globalRegistry.NewClient(ctx, providerID, opts...)
}

// createCustomHTTPClient builds the HTTP client passed to provider SDKs,
// optionally skipping TLS verification.
func createCustomHTTPClient(skipVerifySSL bool) *http.Client {
	if !skipVerifySSL {
		return http.DefaultClient
	}

	klog.Warning("TLS certificate verification is disabled for LLM provider connections")
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &http.Client{Transport: transport}
}

// singletonChatResponseIterator wraps a single response in a streaming iterator.
func singletonChatResponseIterator(resp ChatResponse) ChatResponseIterator {
	return func(yield func(ChatResponse, error) bool) {
		yield(resp, nil)
	}
}

func ptrTo[T any](t T) *T {
	return &t
}

// APIError represents an error returned by the LLM client.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API Error: Status=%d, Message='%s', OriginalErr=%v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API Error: Status=%d, Message='%s'", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryableFunc defines the signature for functions that check if an error is retryable.
type IsRetryableFunc func(error) bool

// DefaultIsRetryableError provides a default implementation based on common HTTP codes and network errors.
func DefaultIsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusConflict, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// RetryConfig holds the configuration for the retry mechanism.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         bool
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    5,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         true,
}

// Retry executes the provided operation with retries, returning the result and error.
// It's generic to handle any return type T.
func Retry[T any](
	ctx context.Context,
	config RetryConfig,
	isRetryable IsRetryableFunc,
	operation func(ctx context.Context) (T, error),
) (T, error) {
	var lastErr error
	var zero T

	log := klog.FromContext(ctx)

	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := operation(ctx)

		if err == nil {
			return result, nil
		}
		lastErr = err

		// Check if context was cancelled *after* the operation
		select {
		case <-ctx.Done():
			log.Info("Context cancelled after attempt failed", "attempt", attempt)
			return zero, ctx.Err()
		default:
		}

		if !isRetryable(lastErr) {
			log.Info("Attempt failed with non-retryable error", "attempt", attempt, "error", lastErr)
			return zero, lastErr
		}

		log.Info("Attempt failed with retryable error", "attempt", attempt, "error", lastErr)

		if attempt == config.MaxAttempts {
			break
		}

		waitTime := backoff
		if config.Jitter {
			waitTime += time.Duration(rand.Float64() * float64(backoff) / 2)
		}

		log.Info("Waiting before next attempt", "waitTime", waitTime, "attempt", attempt+1, "maxAttempts", config.MaxAttempts)

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			log.Info("Context cancelled while waiting for retry", "attempt", attempt)
			return zero, ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * config.BackoffFactor)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	errFinal := fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
	return zero, errFinal
}

// RetryOperation is a helper for retrying operations that return a boolean success indicator and an error.
func RetryOperation(
	ctx context.Context,
	config RetryConfig,
	isRetryable IsRetryableFunc,
	operation func(ctx context.Context) (bool, error),
) (bool, error) {
	var lastErr error
	log := klog.FromContext(ctx)
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		success, err := operation(ctx)

		if err == nil && success {
			return true, nil
		}

		lastErr = err

		select {
		case <-ctx.Done():
			log.Info("Context cancelled after attempt", "attempt", attempt)
			return false, ctx.Err()
		default:
		}

		if !isRetryable(lastErr) {
			log.Info("Attempt failed with non-retryable error", "attempt", attempt, "error", lastErr)
			return false, lastErr
		}

		log.Info("Attempt failed with retryable error", "attempt", attempt, "error", lastErr)

		if attempt == config.MaxAttempts {
			break
		}

		waitTime := backoff
		if config.Jitter {
			waitTime += time.Duration(rand.Float64() * float64(backoff) / 2)
		}

		log.Info("Waiting before next attempt", "waitTime", waitTime, "attempt", attempt+1, "maxAttempts", config.MaxAttempts)

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			log.Info("Context cancelled while waiting for retry", "attempt", attempt)
			return false, ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * config.BackoffFactor)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	errFinal := fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
	return false, errFinal
}

// retryChat is a generic decorator that adds retry logic to any Chat implementation.
type retryChat[C Chat] struct {
	underlying  Chat
	config      RetryConfig
	isRetryable IsRetryableFunc
}

// NewRetryChat creates a new Chat that wraps the given underlying client
// with retry logic using the provided configuration.
// It returns the Chat interface type, hiding the generic implementation detail.
func NewRetryChat[C Chat](
	underlying C,
	config RetryConfig,
) Chat {
	return &retryChat[C]{
		underlying: underlying,
		config:     config,
	}
}

func (rc *retryChat[C]) Send(ctx context.Context, contents ...any) (ChatResponse, error) {
	operation := func(ctx context.Context) (ChatResponse, error) {
		return rc.underlying.Send(ctx, contents...)
	}

	return Retry[ChatResponse](ctx, rc.config, rc.underlying.IsRetryableError, operation)
}

func (rc *retryChat[C]) SendStreaming(ctx context.Context, contents ...any) (ChatResponseIterator, error) {
	var iterator ChatResponseIterator
	var streamErr error

	// First try to get a streaming connection
	operation := func(ctx context.Context) (bool, error) {
		iterator, streamErr = rc.underlying.SendStreaming(ctx, contents...)
		return streamErr == nil, streamErr
	}

	success, err := RetryOperation(ctx, rc.config, rc.underlying.IsRetryableError, operation)

	// If streaming failed with a retryable error, fall back to non-streaming Send
	if !success && err != nil && rc.underlying.IsRetryableError(err) {
		klog.InfoS("Streaming failed after retries, falling back to non-streaming Send", "error", err)

		resp, sendErr := rc.underlying.Send(ctx, contents...)
		if sendErr != nil {
			return nil, fmt.Errorf("both streaming and non-streaming attempts failed: streaming: %w, non-streaming: %v", err, sendErr)
		}

		return singletonChatResponseIterator(resp), nil
	}

	if err != nil {
		return nil, err
	}

	// Return a wrapped iterator that handles retries on stream errors
	return func(yield func(ChatResponse, error) bool) {
		wrappedYield := func(resp ChatResponse, err error) bool {
			if err == nil {
				return yield(resp, nil)
			}

			if !rc.underlying.IsRetryableError(err) {
				return yield(resp, err)
			}

			klog.InfoS("Retryable error in stream", "error", err)

			// Try falling back to non-streaming
			fallbackResp, fallbackErr := rc.underlying.Send(ctx, contents...)
			if fallbackErr == nil {
				klog.InfoS("Successfully fell back to non-streaming after streaming error")
				return yield(fallbackResp, nil)
			}

			klog.InfoS("Non-streaming fallback also failed", "error", fallbackErr)

			var retrySucceeded bool
			var retryErr error

			retryOperation := func(ctx context.Context) (bool, error) {
				iterator, retryErr = rc.underlying.SendStreaming(ctx, contents...)
				return retryErr == nil, retryErr
			}

			retrySucceeded, retryErr = RetryOperation(ctx, rc.config, rc.underlying.IsRetryableError, retryOperation)

			if !retrySucceeded {
				return yield(resp, fmt.Errorf("stream error, retry and fallback failed: %w", err))
			}

			klog.InfoS("Successfully reconnected stream after error")
			return true
		}

		iterator(wrappedYield)
	}, nil
}

func (rc *retryChat[C]) SetFunctionDefinitions(functionDefinitions []*FunctionDefinition) error {
	return rc.underlying.SetFunctionDefinitions(functionDefinitions)
}

func (rc *retryChat[C]) IsRetryableError(err error) bool {
	return rc.underlying.IsRetryableError(err)
}

func (rc *retryChat[C]) Initialize(messages []*api.Message) error {
	return rc.underlying.Initialize(messages)
}
