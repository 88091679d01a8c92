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
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/log"
)

var _ Generator = (*Completer)(nil)

// Completer is a plain chat-completion Generator without tools. It is what
// the improvement engine uses: one prompt in, one code suggestion out, with
// retry on transient transport errors.
type Completer struct {
	cfg   ModelConfig
	model ChatModel
}

func NewCompleter(cfg ModelConfig) *Completer {
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 600 * time.Second
	}
	return &Completer{
		cfg:   cfg,
		model: NewChatModel(cfg),
	}
}

// Call sends the prompt and returns the raw response content. Transient
// errors are retried with exponential backoff (2s, 4s, 8s, capped at 10s).
func (c *Completer) Call(ctx context.Context, input string) (string, error) {
	messages := []*schema.Message{
		schema.UserMessage(input),
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		response, err := c.model.Generate(attemptCtx, messages)
		cancel()

		if err == nil {
			if response == nil {
				return "", errors.New("LLM returned nil response")
			}
			return response.Content, nil
		}
		lastErr = err

		if !isRetryableError(err) || attempt == c.cfg.Retries {
			return "", errors.Wrapf(err, "LLM call failed after %d attempts", attempt)
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
		log.Info("LLM call failed (attempt %d/%d), retrying in %v: %v", attempt, c.cfg.Retries, backoff, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// isRetryableError matches transient transport failures by substring.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "temporary failure")
}

// CleanCodeResponse removes markdown code fences from LLM response
func CleanCodeResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove language-specific code fence prefixes
	prefixes := []string{
		"```go", "```golang",
		"```rust", "```rs",
		"```python", "```py",
		"```java",
		"```javascript", "```js",
		"```",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(response, prefix) {
			response = strings.TrimPrefix(response, prefix)
			break
		}
	}

	// Remove trailing ```
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	return strings.TrimSpace(response)
}
