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

package sessions

import (
	"testing"
	"time"

	"github.com/docs-ai/docs-ai/pkg/api"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	sm, err := NewSessionManager()
	if err != nil {
		t.Fatalf("NewSessionManager() error: %v", err)
	}
	return sm
}

func TestSessionLifecycle(t *testing.T) {
	sm := newTestManager(t)

	session, err := sm.NewSession(Metadata{ProviderID: "openai", ModelID: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}

	meta, err := session.LoadMetadata()
	if err != nil {
		t.Fatalf("LoadMetadata() error: %v", err)
	}
	if meta.ProviderID != "openai" || meta.ModelID != "gpt-4o-mini" {
		t.Errorf("metadata = %+v, want provider openai and model gpt-4o-mini", meta)
	}
	if meta.CreatedAt.IsZero() || meta.LastAccessed.IsZero() {
		t.Error("expected creation and last accessed timestamps to be set")
	}

	// History starts empty.
	if msgs := session.ChatMessages(); len(msgs) != 0 {
		t.Errorf("new session has %d messages, want 0", len(msgs))
	}

	messages := []*api.Message{
		{ID: "1", Source: api.MessageSourceUser, Type: api.MessageTypeText, Payload: "how do I read a file in Go?", Timestamp: time.Now()},
		{ID: "2", Source: api.MessageSourceModel, Type: api.MessageTypeText, Payload: "Use os.ReadFile.", Timestamp: time.Now()},
	}
	for _, msg := range messages {
		if err := session.AddChatMessage(msg); err != nil {
			t.Fatalf("AddChatMessage() error: %v", err)
		}
	}

	// A fresh Session handle for the same path must see the persisted history.
	reopened, err := sm.FindSessionByID(session.ID)
	if err != nil {
		t.Fatalf("FindSessionByID() error: %v", err)
	}
	got := reopened.ChatMessages()
	if len(got) != len(messages) {
		t.Fatalf("reopened session has %d messages, want %d", len(got), len(messages))
	}
	if got[0].Payload != "how do I read a file in Go?" {
		t.Errorf("first message payload = %v", got[0].Payload)
	}
	if got[1].Source != api.MessageSourceModel {
		t.Errorf("second message source = %q, want %q", got[1].Source, api.MessageSourceModel)
	}

	if err := session.ClearChatMessages(); err != nil {
		t.Fatalf("ClearChatMessages() error: %v", err)
	}
	if msgs := session.ChatMessages(); len(msgs) != 0 {
		t.Errorf("cleared session has %d messages, want 0", len(msgs))
	}

	if err := sm.DeleteSession(session.ID); err != nil {
		t.Fatalf("DeleteSession() error: %v", err)
	}
	if _, err := sm.FindSessionByID(session.ID); err == nil {
		t.Error("FindSessionByID() found a deleted session")
	}
}

func TestGetLatestSession(t *testing.T) {
	sm := newTestManager(t)

	latest, err := sm.GetLatestSession()
	if err != nil {
		t.Fatalf("GetLatestSession() error: %v", err)
	}
	if latest != nil {
		t.Fatalf("GetLatestSession() = %v, want nil when no sessions exist", latest)
	}

	if _, err := sm.NewSession(Metadata{ProviderID: "ollama", ModelID: "gemma3:latest"}); err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}

	latest, err = sm.GetLatestSession()
	if err != nil {
		t.Fatalf("GetLatestSession() error: %v", err)
	}
	if latest == nil {
		t.Fatal("GetLatestSession() = nil after creating a session")
	}
}

func TestInMemoryChatStore(t *testing.T) {
	store := NewInMemoryChatStore()

	if err := store.AddChatMessage(&api.Message{ID: "1", Type: api.MessageTypeText, Payload: "hello"}); err != nil {
		t.Fatalf("AddChatMessage() error: %v", err)
	}
	if err := store.AddChatMessage(&api.Message{ID: "2", Type: api.MessageTypeText, Payload: "world"}); err != nil {
		t.Fatalf("AddChatMessage() error: %v", err)
	}

	msgs := store.ChatMessages()
	if len(msgs) != 2 {
		t.Fatalf("ChatMessages() returned %d messages, want 2", len(msgs))
	}

	// Mutating the returned slice must not affect the store.
	msgs[0] = nil
	if stored := store.ChatMessages(); stored[0] == nil {
		t.Error("store contents were mutated through the returned slice")
	}

	if err := store.ClearChatMessages(); err != nil {
		t.Fatalf("ClearChatMessages() error: %v", err)
	}
	if msgs := store.ChatMessages(); len(msgs) != 0 {
		t.Errorf("cleared store has %d messages, want 0", len(msgs))
	}
}
