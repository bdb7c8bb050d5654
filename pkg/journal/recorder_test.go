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

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.yaml")

	recorder, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder() error: %v", err)
	}

	ctx := context.Background()
	events := []*Event{
		{Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), Action: "trace-start"},
		{Timestamp: time.Date(2025, 6, 1, 10, 0, 1, 0, time.UTC), Action: "web-search", Payload: map[string]any{"query": "golang context cancellation"}},
		{Timestamp: time.Date(2025, 6, 1, 10, 0, 2, 0, time.UTC), Action: "llm-response", Payload: "done"},
	}
	for _, event := range events {
		if err := recorder.Write(ctx, event); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	parsed, err := ParseEventsFromFile(path)
	if err != nil {
		t.Fatalf("ParseEventsFromFile() error: %v", err)
	}

	if len(parsed) != len(events) {
		t.Fatalf("parsed %d events, want %d", len(parsed), len(events))
	}
	for i, event := range events {
		if parsed[i].Action != event.Action {
			t.Errorf("event %d action = %q, want %q", i, parsed[i].Action, event.Action)
		}
		if !parsed[i].Timestamp.Equal(event.Timestamp) {
			t.Errorf("event %d timestamp = %v, want %v", i, parsed[i].Timestamp, event.Timestamp)
		}
	}
}

func TestRecorderFromContextDefaultsToLogRecorder(t *testing.T) {
	recorder := RecorderFromContext(context.Background())
	if _, ok := recorder.(*LogRecorder); !ok {
		t.Errorf("RecorderFromContext() = %T, want *LogRecorder", recorder)
	}

	ctx := ContextWithRecorder(context.Background(), &LogRecorder{})
	if recorder := RecorderFromContext(ctx); recorder == nil {
		t.Error("RecorderFromContext() returned nil for context with recorder")
	}
}
