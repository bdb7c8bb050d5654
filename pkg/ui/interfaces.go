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

package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// UI is a frontend for the agent. It renders messages from the agent's
// Output channel and replies on the Input channel.
type UI interface {
	// Run serves the conversation until the agent exits or ctx is cancelled.
	Run(ctx context.Context) error

	io.Closer

	// ClearScreen clears any output rendered to the screen
	ClearScreen()
}

// Type selects the user interface implementation.
type Type string

const (
	UITypeTerminal Type = "terminal"
	UITypeWeb      Type = "web"
	UITypeTUI      Type = "tui"
)

func (t *Type) String() string {
	return string(*t)
}

// Set implements pflag.Value.
func (t *Type) Set(value string) error {
	switch parsed := Type(strings.ToLower(value)); parsed {
	case UITypeTerminal, UITypeWeb, UITypeTUI:
		*t = parsed
		return nil
	default:
		return fmt.Errorf("unknown UI type %q (supported values: terminal, web, tui)", value)
	}
}

func (t *Type) Type() string {
	return "string"
}
