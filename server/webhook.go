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

package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/workflow"
)

const (
	headerEvent     = "X-GitHub-Event"
	headerSignature = "X-Hub-Signature-256"
)

// verifySignature checks a GitHub `sha256=<hex>` body signature. An empty
// secret disables verification, for local use only.
func verifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return nil
	}
	signature = strings.TrimSpace(signature)
	if !strings.HasPrefix(signature, "sha256=") {
		return errors.New("missing or malformed signature")
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return errors.New("invalid signature encoding")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return errors.New("invalid signature")
	}
	return nil
}

// signBody computes the `sha256=<hex>` signature for a body. Exposed for
// tests and local webhook senders.
func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type pushPayload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	Repository struct {
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Head struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
			Repo struct {
				FullName string `json:"full_name"`
				CloneURL string `json:"clone_url"`
			} `json:"repo"`
		} `json:"head"`
	} `json:"pull_request"`
}

// parseEvent maps a GitHub webhook delivery to a run trigger. Unsupported
// event kinds and non-change PR actions return ok=false without error.
func parseEvent(kind string, body []byte) (ev workflow.Event, ok bool, err error) {
	switch kind {
	case workflow.EventPush:
		var p pushPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return ev, false, errors.Wrap(err, "parse push payload")
		}
		ev = workflow.Event{
			Kind:     workflow.EventPush,
			Repo:     p.Repository.FullName,
			Branch:   strings.TrimPrefix(p.Ref, "refs/heads/"),
			Commit:   p.After,
			CloneURL: p.Repository.CloneURL,
		}
		return ev, true, nil

	case workflow.EventPullRequest:
		var p pullRequestPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return ev, false, errors.Wrap(err, "parse pull_request payload")
		}
		switch p.Action {
		case "opened", "synchronize", "reopened":
		default:
			return ev, false, nil
		}
		ev = workflow.Event{
			Kind:     workflow.EventPullRequest,
			Repo:     p.PullRequest.Head.Repo.FullName,
			Branch:   p.PullRequest.Head.Ref,
			Commit:   p.PullRequest.Head.SHA,
			CloneURL: p.PullRequest.Head.Repo.CloneURL,
		}
		return ev, true, nil
	}
	return ev, false, nil
}
