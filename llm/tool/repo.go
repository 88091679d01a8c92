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

// Package tool exposes the repository to LLM agents: reading sources,
// listing files, running the test gate and applying improvement candidates.
package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/invopop/jsonschema"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/improve/syntax"
	mutils "github.com/mejora-dev/mejora/internal/utils"
)

// Tool is any eino tool usable by an agent.
type Tool = tool.BaseTool

// GetJSONSchema reflects the JSON schema of a request struct for raw-schema
// tool registration.
func GetJSONSchema(v any) json.RawMessage {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	js, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return js
}

const (
	ToolReadSource         = "read_source"
	DescReadSource         = "read the current content of a source file in the project"
	ToolListProjectFiles   = "list_project_files"
	DescListProjectFiles   = "list all files in the project tree"
	ToolRunTests           = "run_tests"
	DescRunTests           = "run the project's test command and report whether it passed"
	ToolProposeImprovement = "propose_improvement"
	DescProposeImprovement = "preview an improvement candidate: syntax check plus a semantic diff against the current file, without writing anything"
	ToolApplyImprovement   = "apply_improvement"
	DescApplyImprovement   = "apply an improvement candidate to a file; the change is validated, tested and reverted if the tests fail"
)

var (
	SchemaReadSource         = GetJSONSchema(ReadSourceReq{})
	SchemaListProjectFiles   = GetJSONSchema(ListProjectFilesReq{})
	SchemaRunTests           = GetJSONSchema(RunTestsReq{})
	SchemaProposeImprovement = GetJSONSchema(ProposeImprovementReq{})
	SchemaApplyImprovement   = GetJSONSchema(ApplyImprovementReq{})
)

type RepoToolsOptions struct {
	WorkDir string
	// Engine validates and applies candidates. Required for run_tests,
	// propose_improvement and apply_improvement.
	Engine *improve.Engine
}

// RepoTools binds the repository operations to eino tools.
type RepoTools struct {
	opts  RepoToolsOptions
	tools map[string]tool.InvokableTool
}

func NewRepoTools(opts RepoToolsOptions) *RepoTools {
	ret := &RepoTools{
		opts:  opts,
		tools: map[string]tool.InvokableTool{},
	}

	tt, err := utils.InferTool(ToolReadSource,
		DescReadSource,
		ret.ReadSource, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return mutils.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolReadSource] = tt

	tt, err = utils.InferTool(ToolListProjectFiles,
		DescListProjectFiles,
		ret.ListProjectFiles, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return mutils.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolListProjectFiles] = tt

	tt, err = utils.InferTool(ToolRunTests,
		DescRunTests,
		ret.RunTests, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return mutils.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolRunTests] = tt

	tt, err = utils.InferTool(ToolProposeImprovement,
		DescProposeImprovement,
		ret.ProposeImprovement, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return mutils.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolProposeImprovement] = tt

	tt, err = utils.InferTool(ToolApplyImprovement,
		DescApplyImprovement,
		ret.ApplyImprovement, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return mutils.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolApplyImprovement] = tt

	return ret
}

// Tools returns all registered tools for agent wiring.
func (r *RepoTools) Tools() []Tool {
	ret := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		ret = append(ret, t)
	}
	return ret
}

// resolve keeps paths inside the work dir.
func (r *RepoTools) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(rel)), "../") {
		return "", os.ErrPermission
	}
	return filepath.Join(r.opts.WorkDir, rel), nil
}

type ReadSourceReq struct {
	Path string `json:"path" jsonschema:"description=file path relative to the project root"`
}

type ReadSourceResp struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r *RepoTools) ReadSource(ctx context.Context, req *ReadSourceReq) (*ReadSourceResp, error) {
	resp := &ReadSourceResp{Path: req.Path}
	abs, err := r.resolve(req.Path)
	if err != nil {
		resp.Error = "path escapes the project root"
		return resp, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Language = syntax.LanguageName(req.Path)
	resp.Content = string(data)
	return resp, nil
}

type ListProjectFilesReq struct {
	Dir string `json:"dir,omitempty" jsonschema:"description=subdirectory to list; empty for the whole project"`
}

type ListProjectFilesResp struct {
	Files []string `json:"files"`
	Error string   `json:"error,omitempty"`
}

func (r *RepoTools) ListProjectFiles(ctx context.Context, req *ListProjectFilesReq) (*ListProjectFilesResp, error) {
	resp := &ListProjectFilesResp{}
	root := r.opts.WorkDir
	if req.Dir != "" {
		abs, err := r.resolve(req.Dir)
		if err != nil {
			resp.Error = "path escapes the project root"
			return resp, nil
		}
		root = abs
	}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".mejora" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.opts.WorkDir, path)
		if err != nil {
			return nil
		}
		resp.Files = append(resp.Files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

type RunTestsReq struct{}

type RunTestsResp struct {
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r *RepoTools) RunTests(ctx context.Context, req *RunTestsReq) (*RunTestsResp, error) {
	resp := &RunTestsResp{}
	if r.opts.Engine == nil {
		resp.Error = "no improvement engine configured"
		return resp, nil
	}
	passed, output, err := r.opts.Engine.RunGate(ctx)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Passed = passed
	resp.Output = output
	return resp, nil
}

type ProposeImprovementReq struct {
	Path string `json:"path" jsonschema:"description=file path relative to the project root"`
	Code string `json:"code" jsonschema:"description=the full improved file content"`
}

type ProposeImprovementResp struct {
	Valid      bool   `json:"valid"`
	Diff       string `json:"diff,omitempty"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
	Error      string `json:"error,omitempty"`
}

func (r *RepoTools) ProposeImprovement(ctx context.Context, req *ProposeImprovementReq) (*ProposeImprovementResp, error) {
	resp := &ProposeImprovementResp{}
	abs, err := r.resolve(req.Path)
	if err != nil {
		resp.Error = "path escapes the project root"
		return resp, nil
	}
	original, err := os.ReadFile(abs)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	if err := syntax.Check(ctx, req.Path, []byte(req.Code)); err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Valid = true
	diffs := improve.SemanticDiff(string(original), req.Code)
	stats := improve.Stats(diffs)
	resp.Diff = improve.FormatDiff(diffs)
	resp.Insertions = stats.Insertions
	resp.Deletions = stats.Deletions
	return resp, nil
}

type ApplyImprovementReq struct {
	Path string `json:"path" jsonschema:"description=file path relative to the project root"`
	Code string `json:"code" jsonschema:"description=the full improved file content"`
}

type ApplyImprovementResp struct {
	Applied  bool   `json:"applied"`
	Reverted bool   `json:"reverted"`
	Error    string `json:"error,omitempty"`
}

func (r *RepoTools) ApplyImprovement(ctx context.Context, req *ApplyImprovementReq) (*ApplyImprovementResp, error) {
	resp := &ApplyImprovementResp{}
	if r.opts.Engine == nil {
		resp.Error = "no improvement engine configured"
		return resp, nil
	}
	tr, err := r.opts.Engine.ApplyCandidate(ctx, req.Path, []byte(req.Code))
	if err != nil {
		resp.Error = err.Error()
		if tr != nil {
			resp.Reverted = tr.Reverted
		}
		return resp, nil
	}
	resp.Applied = tr.Applied
	resp.Reverted = tr.Reverted
	return resp, nil
}
