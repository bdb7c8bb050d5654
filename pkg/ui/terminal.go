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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"golang.org/x/term"
	"k8s.io/klog/v2"

	"github.com/docs-ai/docs-ai/pkg/agent"
	"github.com/docs-ai/docs-ai/pkg/api"
	"github.com/docs-ai/docs-ai/pkg/journal"
)

// TerminalUI is the plain read-eval-print frontend. It renders agent
// messages to stdout and reads queries with readline.
type TerminalUI struct {
	agent            *agent.Agent
	journal          journal.Recorder
	markdownRenderer *glamour.TermRenderer

	// Input handling fields (initialized once)
	rlInstance        *readline.Instance // For readline input
	ttyFile           *os.File           // For TTY input
	ttyReaderInstance *bufio.Reader      // For TTY input

	// This is useful in cases where stdin is already been used for providing the input to the agent (caller in this case)
	// in such cases, stdin is already consumed and closed and reading input results in IO error.
	// In such cases, we open /dev/tty and use it for taking input.
	useTTYForInput bool

	// showToolOutput renders tool responses inline instead of hiding them.
	showToolOutput bool
}

var _ UI = &TerminalUI{}

func getCustomTerminalWidth() int {
	// Check for user-configured width via environment variable
	if widthStr := os.Getenv("DOCS_AI_TERM_WIDTH"); widthStr != "" {
		if width, err := strconv.Atoi(widthStr); err == nil && width > 0 {
			return width
		}
		klog.Warningf("Invalid DOCS_AI_TERM_WIDTH value %q, using default", widthStr)
	}

	// Wrap to the terminal when stdout is one
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if width, _, err := term.GetSize(fd); err == nil && width > 0 {
			return width
		}
	}

	// Return 0 to indicate no custom width should be set (use glamour's default)
	return 0
}

func NewTerminalUI(agent *agent.Agent, useTTYForInput bool, showToolOutput bool, journal journal.Recorder) (*TerminalUI, error) {
	width := getCustomTerminalWidth()

	options := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
		glamour.WithPreservedNewLines(),
		glamour.WithEmoji(),
	}

	// Only add WordWrap if a valid width is configured
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}

	mdRenderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return nil, fmt.Errorf("error initializing the markdown renderer: %w", err)
	}

	return &TerminalUI{
		agent:            agent,
		journal:          journal,
		markdownRenderer: mdRenderer,
		useTTYForInput:   useTTYForInput,
		showToolOutput:   showToolOutput,
	}, nil
}

// Run consumes the agent's Output channel until the agent exits. Input
// and choice prompts block the loop; the agent is blocked on its Input
// channel at those points, so no messages are missed.
func (u *TerminalUI) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-u.agent.Output:
			if !ok {
				return nil
			}
			message, ok := msg.(*api.Message)
			if !ok {
				klog.Warningf("unexpected message type on output channel: %T", msg)
				continue
			}
			if err := u.handleMessage(message); err != nil {
				return err
			}
		}
	}
}

func (u *TerminalUI) handleMessage(message *api.Message) error {
	switch message.Type {
	case api.MessageTypeUserInputRequest:
		return u.promptForInput()
	case api.MessageTypeUserChoiceRequest:
		req, ok := message.Payload.(*api.UserChoiceRequest)
		if !ok {
			return fmt.Errorf("choice request carries unexpected payload %T", message.Payload)
		}
		return u.promptForChoice(req)
	}

	payload, ok := message.Payload.(string)
	if !ok {
		return nil
	}

	switch {
	case message.Source == api.MessageSourceUser:
		// The user just typed this, no need to echo it back.
	case message.Type == api.MessageTypeError:
		fmt.Printf("\033[31mError: %s\033[0m\n", payload)
	case message.Type == api.MessageTypeToolCallRequest:
		fmt.Printf("\033[32m  Running: %s\033[0m\n", payload)
	case message.Type == api.MessageTypeToolCallResponse:
		if u.showToolOutput {
			fmt.Printf("%s\n", payload)
		}
	case message.Type == api.MessageTypeText:
		u.renderMarkdown(payload)
	}
	return nil
}

func (u *TerminalUI) renderMarkdown(text string) {
	out, err := u.markdownRenderer.Render(text)
	if err != nil {
		klog.Errorf("Error rendering markdown: %v", err)
		fmt.Print(text)
		return
	}
	fmt.Print(out)
}

func (u *TerminalUI) promptForInput() error {
	query, err := u.readLine(">>> ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Ctrl+C / Ctrl+D end the conversation the same way "exit" does.
			u.agent.Input <- &api.UserInputResponse{Query: ""}
			return nil
		}
		return err
	}
	u.agent.Input <- &api.UserInputResponse{Query: query}
	return nil
}

func (u *TerminalUI) promptForChoice(req *api.UserChoiceRequest) error {
	fmt.Printf("%s\n", req.Prompt)
	var choiceNumbers []string
	for i, option := range req.Options {
		fmt.Printf("  %d) %s\n", i+1, option.Label)
		choiceNumbers = append(choiceNumbers, strconv.Itoa(i+1))
	}

	prompt := fmt.Sprintf("  Enter your choice (%s): ", strings.Join(choiceNumbers, ","))
	for {
		response, err := u.readLine(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// An aborted prompt declines the operation; the last
				// option is always the decline.
				u.agent.Input <- &api.UserChoiceResponse{Choice: len(req.Options)}
				return nil
			}
			return err
		}
		choice, err := strconv.Atoi(response)
		if err != nil || choice < 1 || choice > len(req.Options) {
			fmt.Printf("  Invalid choice. Please enter one of: %s\n", strings.Join(choiceNumbers, ", "))
			continue
		}
		u.agent.Input <- &api.UserChoiceResponse{Choice: choice}
		return nil
	}
}

func (u *TerminalUI) readLine(prompt string) (string, error) {
	if u.useTTYForInput {
		reader, err := u.ttyReader()
		if err != nil {
			return "", err
		}
		fmt.Printf("\n%s", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	rl, err := u.readlineInstance()
	if err != nil {
		return "", err
	}
	rl.SetPrompt(prompt)
	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (u *TerminalUI) ttyReader() (*bufio.Reader, error) {
	if u.ttyReaderInstance != nil {
		return u.ttyReaderInstance, nil
	}
	// Initialize TTY input
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening tty for input: %w", err)
	}
	u.ttyFile = tty // Store file handle for closing
	u.ttyReaderInstance = bufio.NewReader(tty)
	return u.ttyReaderInstance, nil
}

func (u *TerminalUI) readlineInstance() (*readline.Instance, error) {
	if u.rlInstance != nil {
		return u.rlInstance, nil
	}
	// Initialize readline input
	historyPath := filepath.Join(os.TempDir(), "docs-ai-history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      ">>> ",
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		HistoryFile: historyPath,
	})
	if err != nil {
		klog.Warningf("Failed to initialize readline, input might be limited: %v", err)
		return nil, fmt.Errorf("creating readline instance: %w", err)
	}
	u.rlInstance = rl
	return u.rlInstance, nil
}

func (u *TerminalUI) Close() error {
	var errs []error
	if u.rlInstance != nil {
		if err := u.rlInstance.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing readline instance: %w", err))
		}
	}
	if u.ttyFile != nil {
		if err := u.ttyFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing tty file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (u *TerminalUI) ClearScreen() {
	fmt.Print("\033[H\033[2J")
}
