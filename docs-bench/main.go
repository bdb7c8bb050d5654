package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docs-ai/docs-ai/docs-bench/pkg/model"
)

type Task struct {
	// Question is sent to the agent as a one-shot query.
	Question string `json:"question"`
	// SearchSite restricts the agent's web searches for this task.
	SearchSite string `json:"searchSite,omitempty"`
	// Expect lists checks applied to the agent's answer.
	Expect     []Expectation `json:"expect,omitempty"`
	Difficulty string        `json:"difficulty"`
	Disabled   bool          `json:"disabled,omitempty"`
}

type Expectation struct {
	Contains string `json:"contains"`
}

type EvalConfig struct {
	LLMConfigs  []model.LLMConfig
	TasksDir    string
	TaskPattern string
	AgentBin    string

	OutputDir string
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Clean(os.ExpandEnv(path)), nil
}

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	config := EvalConfig{
		TasksDir: "./tasks",
	}

	llmProvider := "openai"
	modelList := ""

	flag.StringVar(&config.TasksDir, "tasks-dir", config.TasksDir, "Directory containing evaluation tasks")
	flag.StringVar(&config.TaskPattern, "task-pattern", config.TaskPattern, "Pattern to filter tasks (e.g. 'go' or 'http')")
	flag.StringVar(&config.AgentBin, "agent-bin", config.AgentBin, "Path to docs-ai binary")
	flag.StringVar(&llmProvider, "llm-provider", llmProvider, "Specific LLM provider to evaluate (e.g. 'openai' or 'ollama')")
	flag.StringVar(&modelList, "models", modelList, "Comma-separated list of models to evaluate (e.g. 'gpt-4o-mini,gpt-4o')")
	flag.StringVar(&config.OutputDir, "output-dir", config.OutputDir, "Directory to write results to")
	flag.Parse()

	if config.AgentBin == "" {
		return fmt.Errorf("--agent-bin is required")
	}
	expandedAgentBin, err := expandPath(config.AgentBin)
	if err != nil {
		return fmt.Errorf("failed to expand agent binary path %q: %w", config.AgentBin, err)
	}
	config.AgentBin = expandedAgentBin

	defaultModels := map[string][]string{
		"openai": {"gpt-4o-mini"},
	}

	models := defaultModels
	if modelList != "" {
		if llmProvider == "" {
			return fmt.Errorf("--llm-provider is required when --models is specified")
		}
		modelSlice := strings.Split(modelList, ",")
		models = map[string][]string{
			llmProvider: modelSlice,
		}
	}

	for llmProviderID, models := range models {
		for _, modelID := range models {
			id := fmt.Sprintf("%s-%s", llmProviderID, modelID)
			config.LLMConfigs = append(config.LLMConfigs, model.LLMConfig{
				ID:         id,
				ProviderID: llmProviderID,
				ModelID:    modelID,
			})
		}
	}

	if err := runEvaluation(ctx, config); err != nil {
		return fmt.Errorf("running evaluation: %w", err)
	}

	return nil
}
