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

package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/llm/prompt"
)

var _ Generator = (*ReactAgent)(nil)

type ReactAgent struct {
	opts ReactAgentOptions
	*react.Agent
	retries int           // Number of retries on failure
	timeout time.Duration // Request timeout
}

type ReactAgentOptions struct {
	SysPrompt prompt.Prompt `json:"-"`
	*react.AgentConfig
	Retries int           `json:"retries"` // Number of retries, default: 3
	Timeout time.Duration `json:"timeout"` // Request timeout, default: 600s
}

func NewReactAgent(name string, opts ReactAgentOptions) *ReactAgent {
	if opts.AgentConfig.MessageModifier == nil {
		opts.AgentConfig.MessageModifier = newMessageModifier(opts.SysPrompt.String(), name, opts.AgentConfig.MaxStep)
	}
	agent, err := react.NewAgent(context.Background(), opts.AgentConfig)
	if err != nil {
		panic(err)
	}
	retries := opts.Retries
	if retries == 0 {
		retries = 3 // Default: 3 retries
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 600 * time.Second // Default: 600 seconds
	}
	return &ReactAgent{
		opts:    opts,
		Agent:   agent,
		retries: retries,
		timeout: timeout,
	}
}

func newMessageModifier(sysPrompt string, name string, limit int) func(ctx context.Context, input []*schema.Message) []*schema.Message {
	return func(ctx context.Context, input []*schema.Message) []*schema.Message {
		log.Debug("newMessageModifier, name: %v, limit: %d, input: %v", name, limit, len(input))
		if limit > 0 && len(input) >= limit-1 {
			input = append(input, schema.UserMessage("Max iterations reached. Output your conclusion now, do not call any more tools!"))
		}
		return appendSysPrompt(sysPrompt, input)
	}
}

func appendSysPrompt(sysPrompt string, input []*schema.Message) []*schema.Message {
	res := make([]*schema.Message, 0, len(input)+1)
	res = append(res, schema.SystemMessage(sysPrompt))
	res = append(res, input...)
	return res
}

func (p *ReactAgent) Call(ctx context.Context, input string) (string, error) {
	inputMsg := schema.UserMessage(input)
	log.Debug("[User] %s", input)
	inputMsgs := []*schema.Message{inputMsg}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying LLM call (attempt %d/%d)...", attempt+1, p.retries+1)
			// Exponential backoff: wait 1s, 2s, 4s...
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second
			if waitTime > 10*time.Second {
				waitTime = 10 * time.Second // Cap at 10 seconds
			}
			time.Sleep(waitTime)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		out, err := p.Generate(attemptCtx, inputMsgs, agent.WithComposeOptions(compose.WithCallbacks(CallbackHandler{})))
		cancel()
		if err == nil {
			log.Debug("[Assistant] %s", out.Content)
			return out.Content, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}
	return "", errors.Wrap(lastErr, "react agent call")
}
