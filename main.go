// Copyright 2026 Mejora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
	"github.com/mejora-dev/mejora/internal/pipeline/steps"
	"github.com/mejora-dev/mejora/internal/watch"
	"github.com/mejora-dev/mejora/llm"
	"github.com/mejora-dev/mejora/llm/agent"
	"github.com/mejora-dev/mejora/llm/mcp"
	"github.com/mejora-dev/mejora/llm/prompt"
	"github.com/mejora-dev/mejora/llm/skill"
	"github.com/mejora-dev/mejora/server"
	"github.com/mejora-dev/mejora/version"
	"github.com/mejora-dev/mejora/workflow"
)

const Usage = `mejora <Action> [Flags]
Action:
   run          run the full workflow once: checkout, setup, improve, commit, push
   improve      run only the improvement engine on the workflow targets, no git
   serve        listen for GitHub webhooks and run the workflow per delivery
   watch        rerun the improvement engine whenever a target file changes
   mcp          run as a MCP server exposing the improvement tools over stdio
   agent        improve the project with a tool-calling agent instead of the fixed loop
   version      print the version of mejora
`

func main() {
	flags := flag.NewFlagSet("mejora", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagFile := flags.String("f", "mejora.yaml", "Workflow file path.")
	flagWorkDir := flags.String("C", ".", "Work directory.")
	flagBranch := flags.String("branch", "", "Branch for the synthesized trigger event (default: current branch).")

	var flagSets StringArray
	flags.Var(&flagSets, "set", "Override a workflow field, e.g. -set improve.iterations=5. Repeatable.")

	flagAddr := flags.String("addr", ":8080", "Serve mode listen address.")
	flagRedis := flags.String("redis", "", "Serve mode: redis address for the run store (empty for in-memory).")
	flagQueue := flags.Int("queue", 16, "Serve mode: run queue size.")

	flagMaxSteps := flags.Int("agent-max-steps", 40, "Agent mode: max steps per run.")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	action := strings.ToLower(os.Args[1])
	if len(os.Args) > 2 {
		flags.Parse(os.Args[2:])
	}
	if *flagHelp {
		flags.Usage()
		os.Exit(0)
	}
	if *flagVerbose {
		log.SetLogLevel(log.DebugLevel)
	}

	switch action {
	case "version":
		fmt.Fprintf(os.Stdout, "%s\n", version.Version)
		return
	case "run", "improve", "serve", "watch", "mcp", "agent":
	default:
		flags.Usage()
		os.Exit(1)
	}

	workDir, err := filepath.Abs(*flagWorkDir)
	if err != nil {
		log.Error("Failed to resolve work dir: %v\n", err)
		os.Exit(1)
	}
	if err := log.SetLogFile(filepath.Join(workDir, ".mejora", "mejora.log")); err != nil {
		log.Warn("Failed to open log file: %v", err)
	}

	wf := loadWorkflow(filepath.Join(workDir, *flagFile), flagSets)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch action {
	case "run":
		runAction(ctx, workDir, wf, *flagBranch)

	case "improve":
		improveAction(ctx, workDir, wf)

	case "serve":
		serveAction(ctx, workDir, wf, *flagAddr, *flagRedis, *flagQueue)

	case "watch":
		watchAction(ctx, workDir, wf)

	case "mcp":
		svr := mcp.NewServer(mcp.ServerOptions{
			ServerName:    "mejora",
			ServerVersion: version.Version,
			WorkDir:       workDir,
			TestCommand:   wf.Improve.TestCommand,
			Linters:       wf.Improve.Linters,
			Generator:     buildGenerator(workDir, wf),
		})
		if err := svr.ServeStdio(); err != nil {
			log.Error("Failed to run MCP server: %v\n", err)
			os.Exit(1)
		}

	case "agent":
		agentAction(ctx, workDir, wf, *flagMaxSteps)
	}
}

func loadWorkflow(path string, sets StringArray) *workflow.Workflow {
	wf, err := workflow.Load(path)
	if err != nil {
		log.Error("Failed to load workflow: %v\n", err)
		os.Exit(1)
	}
	if len(sets) > 0 {
		overrides := map[string]string{}
		for _, kv := range sets {
			key, value, found := strings.Cut(kv, "=")
			if !found {
				log.Error("Invalid -set %q, expected key=value\n", kv)
				os.Exit(1)
			}
			overrides[key] = value
		}
		if err := wf.ApplyOverrides(overrides); err != nil {
			log.Error("Failed to apply overrides: %v\n", err)
			os.Exit(1)
		}
	}
	return wf
}

// buildSkills loads the embedded improvement strategies plus any project
// ones under .mejora/skills.
func buildSkills(workDir string) *skill.Registry {
	reg := skill.NewRegistry()
	if err := reg.LoadEmbedded(); err != nil {
		log.Warn("Failed to load embedded skills: %v", err)
	}
	dir := filepath.Join(workDir, ".mejora", "skills")
	if _, err := os.Stat(dir); err == nil {
		if err := reg.LoadDir(dir); err != nil {
			log.Warn("Failed to load skills from %s: %v", dir, err)
		}
	}
	return reg
}

// buildGenerator wires the chat model and the improvement prompt into the
// engine callback: build prompt with the matching skills' guidance, call
// the model, strip code fences.
func buildGenerator(workDir string, wf *workflow.Workflow) improve.Generator {
	cfg := llm.ModelConfigFromEnv()
	cfg.Temperature = wf.Improve.Temperature
	cfg.MaxTokens = wf.Improve.MaxTokens

	completer := llm.NewCompleter(cfg)
	instruction := wf.Improve.Instruction
	skills := buildSkills(workDir)

	return func(ctx context.Context, req *improve.GenerateRequest) (string, error) {
		builder := prompt.NewImprovePromptBuilder(req.Language, instruction).
			WithGuidance(skill.Guidance(skills.ForLanguage(req.Language)))
		input := builder.Build(req.Source, req.Iteration, req.Iterations)
		out, err := completer.Call(ctx, input)
		if err != nil {
			return "", err
		}
		return llm.CleanCodeResponse(out), nil
	}
}

func newRunState(workDir string, wf *workflow.Workflow, branch string) *pipeline.State {
	return &pipeline.State{
		RunID:   uuid.NewString(),
		WorkDir: workDir,
		Event: workflow.Event{
			Kind:   workflow.EventPush,
			Branch: branch,
		},
		Workflow:  wf,
		StartedAt: time.Now(),
	}
}

func buildSteps(workDir string, wf *workflow.Workflow) []pipeline.Step {
	return []pipeline.Step{
		&steps.CheckoutStep{Token: os.Getenv(wf.Push.TokenEnv)},
		&steps.SetupStep{},
		&steps.ImproveStep{Generator: buildGenerator(workDir, wf)},
		&steps.CommitStep{},
		&steps.PushStep{},
	}
}

func runAction(ctx context.Context, workDir string, wf *workflow.Workflow, branch string) {
	st := newRunState(workDir, wf, branch)
	pl := &pipeline.Pipeline{
		Steps: buildSteps(workDir, wf),
		Agent: &pipeline.DefaultAgent{MaxRetry: 2},
	}
	runErr := pl.Run(ctx, st)

	report := pipeline.NewReport(st, runErr)
	if path, err := report.Write(workDir); err != nil {
		log.Warn("Failed to persist run report: %v", err)
	} else {
		log.Info("Run report: %s", path)
	}
	if runErr != nil {
		log.Error("Run %s failed: %v\n", st.RunID, runErr)
		os.Exit(1)
	}
	log.Info("Run %s finished, changed=%v commit=%s", st.RunID, st.Changed, st.CommitHash)
}

func improveAction(ctx context.Context, workDir string, wf *workflow.Workflow) {
	engine := mustNewEngine(workDir, wf)
	result, err := engine.Run(ctx)
	if err != nil {
		log.Error("Improve failed: %v\n", err)
		os.Exit(1)
	}
	for _, tr := range result.Targets {
		log.Info("%s: applied=%v reverted=%v rejected=%v +%d -%d",
			tr.Path, tr.Applied, tr.Reverted, tr.Rejected, tr.Diff.Insertions, tr.Diff.Deletions)
	}
}

func mustNewEngine(workDir string, wf *workflow.Workflow) *improve.Engine {
	scaffolds := make([]improve.Scaffold, 0, len(wf.Improve.Scaffolds))
	for _, sc := range wf.Improve.Scaffolds {
		scaffolds = append(scaffolds, improve.Scaffold{Path: sc.Path, Content: sc.Content})
	}
	engine, err := improve.NewEngine(improve.Options{
		WorkDir:        workDir,
		Targets:        wf.Improve.Targets,
		Iterations:     wf.Improve.Iterations,
		TestCommand:    wf.Improve.TestCommand,
		Linters:        wf.Improve.Linters,
		Scaffolds:      scaffolds,
		KeepCandidates: wf.Improve.KeepCandidates,
		Generator:      buildGenerator(workDir, wf),
	})
	if err != nil {
		log.Error("Failed to build the improvement engine: %v\n", err)
		os.Exit(1)
	}
	return engine
}

func serveAction(ctx context.Context, workDir string, wf *workflow.Workflow, addr, redisAddr string, queueSize int) {
	var store server.RunStore
	if redisAddr != "" {
		rs := server.NewRedisStore(redisAddr, os.Getenv("REDIS_PASSWORD"), 0)
		defer rs.Close()
		store = rs
	} else {
		store = server.NewMemoryStore()
	}

	runner := func(ctx context.Context, runID string, ev workflow.Event) *pipeline.Report {
		st := &pipeline.State{
			RunID:     runID,
			Event:     ev,
			WorkDir:   workDir,
			Workflow:  wf,
			StartedAt: time.Now(),
		}
		pl := &pipeline.Pipeline{
			Steps: buildSteps(workDir, wf),
			Agent: &pipeline.DefaultAgent{MaxRetry: 2},
		}
		runErr := pl.Run(ctx, st)
		report := pipeline.NewReport(st, runErr)
		if _, err := report.Write(workDir); err != nil {
			log.Warn("Failed to persist run report: %v", err)
		}
		return report
	}

	svr, err := server.New(server.Config{
		Addr:          addr,
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		Workflow:      wf,
		Store:         store,
		Runner:        runner,
		QueueSize:     queueSize,
	})
	if err != nil {
		log.Error("Failed to build server: %v\n", err)
		os.Exit(1)
	}
	if err := svr.ListenAndServe(ctx); err != nil {
		log.Error("Server failed: %v\n", err)
		os.Exit(1)
	}
}

func watchAction(ctx context.Context, workDir string, wf *workflow.Workflow) {
	engine := mustNewEngine(workDir, wf)
	w := &watch.Watcher{
		Dir:     workDir,
		Targets: wf.Improve.Targets,
	}
	log.Info("Watching %d target(s) under %s", len(wf.Improve.Targets), workDir)
	err := w.Run(ctx, func(ctx context.Context) error {
		result, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("Watch run finished, changed=%v", result.Changed)
		return nil
	})
	if err != nil && err != context.Canceled {
		log.Error("Watch failed: %v\n", err)
		os.Exit(1)
	}
}

func agentAction(ctx context.Context, workDir string, wf *workflow.Workflow, maxSteps int) {
	engine := mustNewEngine(workDir, wf)

	cfg := llm.ModelConfigFromEnv()
	cfg.Temperature = wf.Improve.Temperature
	improver := agent.NewImproverAgent(ctx, agent.ImproverOptions{
		ModelConfig: cfg,
		MaxSteps:    maxSteps,
		WorkDir:     workDir,
		Engine:      engine,
		Skills:      buildSkills(workDir),
	})

	task := fmt.Sprintf(
		"Improve the following files of this project: %s. "+
			"Read each file first, propose an improvement, and apply it. "+
			"Keep every change passing the tests.",
		strings.Join(wf.Improve.Targets, ", "))
	out, err := improver.Call(ctx, task)
	if err != nil {
		log.Error("Agent failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, out)
}

type StringArray []string

func (s *StringArray) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func (s *StringArray) String() string {
	return strings.Join(*s, ",")
}
