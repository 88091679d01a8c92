/**
 * Copyright 2026 Mejora Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mcp exposes the improvement engine as an MCP server: editors and
// other MCP clients can improve files, run the test gate and inspect run
// reports over stdio.
package mcp

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/internal/pipeline"
	"github.com/mejora-dev/mejora/llm/tool"
)

const (
	ToolImproveFile  = "improve_file"
	DescImproveFile  = "improve one source file with the LLM: generate candidates, validate, test and apply"
	ToolRunGate      = "run_gate"
	DescRunGate      = "run the project's test command and report whether it passed"
	ToolListRuns     = "list_runs"
	DescListRuns     = "list the IDs of persisted improvement runs"
	ToolGetRunReport = "get_run_report"
	DescGetRunReport = "fetch the full report of one improvement run"
)

var (
	SchemaImproveFile  = tool.GetJSONSchema(ImproveFileReq{})
	SchemaRunGate      = tool.GetJSONSchema(RunGateReq{})
	SchemaListRuns     = tool.GetJSONSchema(ListRunsReq{})
	SchemaGetRunReport = tool.GetJSONSchema(GetRunReportReq{})
)

type ServerOptions struct {
	ServerName    string
	ServerVersion string

	// WorkDir is the project the tools operate on.
	WorkDir     string
	TestCommand string
	Linters     []string
	// Generator produces improvement candidates for improve_file.
	Generator improve.Generator
}

type Server struct {
	Server *server.MCPServer
	opts   ServerOptions
}

func NewServer(opts ServerOptions) *Server {
	svr := &Server{
		Server: server.NewMCPServer(opts.ServerName, opts.ServerVersion),
		opts:   opts,
	}

	tools := []Tool{
		NewTool(ToolImproveFile, DescImproveFile, SchemaImproveFile, svr.ImproveFile),
		NewTool(ToolRunGate, DescRunGate, SchemaRunGate, svr.RunGate),
		NewTool(ToolListRuns, DescListRuns, SchemaListRuns, svr.ListRuns),
		NewTool(ToolGetRunReport, DescGetRunReport, SchemaGetRunReport, svr.GetRunReport),
	}
	for _, t := range tools {
		svr.Server.AddTool(t.Tool, t.Handler)
	}

	svr.Server.AddPrompt(mcp.NewPrompt("improve-code",
		mcp.WithPromptDescription("A prompt for improving source code"),
	), handleImproveCodePrompt)

	return svr
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.Server)
}

func (s *Server) newEngine(targets []string, iterations int) (*improve.Engine, error) {
	return improve.NewEngine(improve.Options{
		WorkDir:     s.opts.WorkDir,
		Targets:     targets,
		Iterations:  iterations,
		TestCommand: s.opts.TestCommand,
		Linters:     s.opts.Linters,
		Generator:   s.opts.Generator,
	})
}

type ImproveFileReq struct {
	Path       string `json:"path" jsonschema:"description=file path relative to the project root"`
	Iterations int    `json:"iterations,omitempty" jsonschema:"description=number of improvement rounds (default 3)"`
}

type ImproveFileResp struct {
	Result *improve.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (s *Server) ImproveFile(ctx context.Context, req ImproveFileReq) (*ImproveFileResp, error) {
	resp := &ImproveFileResp{}
	if s.opts.Generator == nil {
		resp.Error = "no generator configured"
		return resp, nil
	}
	engine, err := s.newEngine([]string{req.Path}, req.Iterations)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	result, err := engine.Run(ctx)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Result = result
	return resp, nil
}

type RunGateReq struct{}

type RunGateResp struct {
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) RunGate(ctx context.Context, req RunGateReq) (*RunGateResp, error) {
	resp := &RunGateResp{}
	engine, err := improve.NewEngine(improve.Options{
		WorkDir:     s.opts.WorkDir,
		Targets:     []string{"."},
		TestCommand: s.opts.TestCommand,
		Generator: func(ctx context.Context, r *improve.GenerateRequest) (string, error) {
			return r.Source, nil
		},
	})
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	passed, output, err := engine.RunGate(ctx)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Passed = passed
	resp.Output = output
	return resp, nil
}

type ListRunsReq struct{}

type ListRunsResp struct {
	Runs  []string `json:"runs"`
	Error string   `json:"error,omitempty"`
}

// ListRuns scans the state dir for persisted reports, newest first.
func (s *Server) ListRuns(ctx context.Context, req ListRunsReq) (*ListRunsResp, error) {
	resp := &ListRunsResp{Runs: []string{}}
	entries, err := os.ReadDir(filepath.Join(s.opts.WorkDir, ".mejora"))
	if err != nil {
		if os.IsNotExist(err) {
			return resp, nil
		}
		resp.Error = err.Error()
		return resp, nil
	}
	type run struct {
		id  string
		mod int64
	}
	var runs []run
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "report-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "report-"), ".json")
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, run{id: id, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].mod > runs[j].mod })
	for _, r := range runs {
		resp.Runs = append(resp.Runs, r.id)
	}
	return resp, nil
}

type GetRunReportReq struct {
	RunID string `json:"run_id" jsonschema:"description=the ID of the run to fetch"`
}

type GetRunReportResp struct {
	Report *pipeline.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) GetRunReport(ctx context.Context, req GetRunReportReq) (*GetRunReportResp, error) {
	resp := &GetRunReportResp{}
	path := filepath.Join(s.opts.WorkDir, ".mejora", "report-"+req.RunID+".json")
	report, err := pipeline.LoadReport(path)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Report = report
	return resp, nil
}
