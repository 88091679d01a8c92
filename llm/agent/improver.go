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

// Package agent wires the chat model and the repository tools into a ReAct
// agent that improves code autonomously instead of following the fixed
// iteration loop.
package agent

import (
	"context"

	etool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/llm"
	"github.com/mejora-dev/mejora/llm/prompt"
	"github.com/mejora-dev/mejora/llm/skill"
	"github.com/mejora-dev/mejora/llm/tool"
)

type ImproverOptions struct {
	llm.ModelConfig
	MaxSteps int    `json:"max_steps"`
	WorkDir  string `json:"work_dir"`

	// Engine backs run_tests and apply_improvement.
	Engine *improve.Engine `json:"-"`
	// Skills, if set, are listed in the system prompt as available
	// improvement strategies.
	Skills *skill.Registry `json:"-"`
}

func NewImproverAgent(ctx context.Context, opts ImproverOptions) *llm.ReactAgent {
	log.Debug("NewImproverAgent, opts: %+v", opts)

	exeModel := llm.NewChatModel(opts.ModelConfig)
	repo := tool.NewRepoTools(tool.RepoToolsOptions{
		WorkDir: opts.WorkDir,
		Engine:  opts.Engine,
	})

	ts := repo.Tools()
	log.Debug("NewImproverAgent, get repo tools: %#v", ts)
	tcfg := compose.ToolsNodeConfig{}
	for _, t := range ts {
		tcfg.Tools = append(tcfg.Tools, t.(etool.BaseTool))
	}

	sys := prompt.PromptImproveAgent
	if opts.Skills != nil {
		if xml := skill.AvailableXML(opts.Skills.List()); xml != "" {
			sys = sys + "\n\n" + xml
		}
	}

	return llm.NewReactAgent("improver", llm.ReactAgentOptions{
		SysPrompt: prompt.NewTextPrompt(sys),
		AgentConfig: &react.AgentConfig{
			ToolCallingModel: exeModel,
			ToolsConfig:      tcfg,
			MaxStep:          opts.MaxSteps,
		},
		Retries: opts.Retries,
		Timeout: opts.Timeout,
	})
}
