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

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docs-ai/docs-ai/docs-bench/pkg/model"
	"github.com/docs-ai/docs-ai/pkg/journal"
	"sigs.k8s.io/yaml"
)

func runEvaluation(ctx context.Context, config EvalConfig) error {
	if config.OutputDir == "" {
		return fmt.Errorf("must set OutputDir")
	}

	tasks, err := loadTasks(config)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	var allResults []model.TaskResult

	for taskID, task := range tasks {
		fmt.Printf("Evaluating task: %s\n", taskID)

		for _, llmConfig := range config.LLMConfigs {
			taskOutputDir := filepath.Join(config.OutputDir, taskID, llmConfig.ID)
			if err := os.MkdirAll(taskOutputDir, 0755); err != nil {
				return fmt.Errorf("creating directory %q: %w", taskOutputDir, err)
			}

			var log io.Writer
			logPath := filepath.Join(taskOutputDir, "log.txt")
			logFile, err := os.Create(logPath)
			if err != nil {
				return fmt.Errorf("creating log file %q: %w", logPath, err)
			}
			defer logFile.Close()
			log = logFile

			result := evaluateTask(ctx, config, taskID, task, llmConfig, log)

			if err := writeToYAMLFile(filepath.Join(taskOutputDir, "results.yaml"), result); err != nil {
				return fmt.Errorf("writing results to file: %w", err)
			}
			allResults = append(allResults, result)
		}
	}

	printResults(allResults)
	return nil
}

// writeToYAMLFile will encode the specified object as yaml, and write it to the file.
func writeToYAMLFile(p string, obj any) error {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshaling to yaml: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing to file %q: %w", p, err)
	}
	return nil
}

func loadTasks(config EvalConfig) (map[string]Task, error) {
	tasks := make(map[string]Task)

	entries, err := os.ReadDir(config.TasksDir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		taskID := entry.Name()
		if config.TaskPattern != "" && !strings.Contains(taskID, config.TaskPattern) {
			continue
		}

		taskFile := filepath.Join(config.TasksDir, taskID, "task.yaml")

		data, err := os.ReadFile(taskFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read task file %s: %w", taskFile, err)
		}

		var task Task
		if err := yaml.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("failed to parse task file %s: %w", taskFile, err)
		}

		// Skip disabled tasks
		if task.Disabled {
			fmt.Printf("Skipping disabled task: %s\n", taskID)
			continue
		}

		if task.Question == "" {
			return nil, fmt.Errorf("task %s has no question", taskID)
		}

		tasks[taskID] = task
	}

	return tasks, nil
}

func evaluateTask(ctx context.Context, config EvalConfig, taskID string, task Task, llmConfig model.LLMConfig, log io.Writer) model.TaskResult {
	result := model.TaskResult{
		Task:      taskID,
		LLMConfig: llmConfig,
	}

	x := &TaskExecution{
		result:    &result,
		config:    config,
		llmConfig: llmConfig,
		log:       log,
		task:      &task,
		taskID:    taskID,
	}

	if err := x.runAgent(ctx); err != nil {
		// Unexpected error
		result.Error = err.Error()
		return result
	}

	if result.Result == "" {
		result.Result = "success"
	}

	return result
}

type TaskExecution struct {
	config    EvalConfig
	llmConfig model.LLMConfig
	result    *model.TaskResult
	log       io.Writer
	task      *Task
	taskID    string
}

func (x *TaskExecution) runAgent(ctx context.Context) error {
	taskOutputDir := filepath.Join(x.config.OutputDir, x.taskID, x.llmConfig.ID)

	tracePath := filepath.Join(taskOutputDir, "trace.yaml")

	args := []string{
		"--llm-provider", x.llmConfig.ProviderID,
		"--model", x.llmConfig.ModelID,
		"--trace-path", tracePath,
		"--quiet",
	}
	if x.task.SearchSite != "" {
		args = append(args, "--search-site", x.task.SearchSite)
	}
	args = append(args, x.task.Question)

	var answer bytes.Buffer

	cmd := exec.CommandContext(ctx,
		x.config.AgentBin,
		args...,
	)
	cmd.Stdout = io.MultiWriter(os.Stdout, &answer)
	cmd.Stderr = os.Stderr
	if x.log != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, x.log)
		cmd.Stderr = io.MultiWriter(cmd.Stderr, x.log)
	}

	fmt.Printf("\nRunning command: %s\n", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		return err
	}

	answerText := answer.String()
	if err := os.WriteFile(filepath.Join(taskOutputDir, "answer.txt"), []byte(answerText), 0644); err != nil {
		return fmt.Errorf("writing answer to file: %w", err)
	}

	for _, expect := range x.task.Expect {
		if expect.Contains != "" {
			if !strings.Contains(strings.ToLower(answerText), strings.ToLower(expect.Contains)) {
				x.result.AddFailure("expected value %q not found in answer %q", expect.Contains, answerText)
			}
		}
	}

	// The trace tells us how many LLM rounds the agent needed.
	events, err := journal.ParseEventsFromFile(tracePath)
	if err != nil {
		return fmt.Errorf("parsing trace %q: %w", tracePath, err)
	}
	iterations := 0
	for _, event := range events {
		if event.Action == "llm-chat" {
			iterations++
		}
	}
	x.result.Iterations = iterations

	return nil
}

func printResults(allResults []model.TaskResult) {
	fmt.Println("\nEvaluation Results:")
	fmt.Println("==================")

	for _, result := range allResults {
		fmt.Printf("\nTask: %s\n", result.Task)
		fmt.Printf("  LLM Config: %+v\n", result.LLMConfig)
		fmt.Printf("    %v (%d LLM rounds)\n", result.Result, result.Iterations)
		for _, failure := range result.Failures {
			fmt.Printf("    Failure: %s\n", failure)
		}
		if result.Error != "" {
			fmt.Printf("    Error: %s\n", result.Error)
		}
	}
}
