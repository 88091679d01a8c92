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

// Package gitops wraps go-git for the checkout, commit and push side effects
// of a run. Tokens authenticate as the GitHub app convention
// ("x-access-token" basic auth); an empty token means anonymous access.
package gitops

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
)

// ErrNothingToCommit is returned by CommitAll when the work tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

type Repo struct {
	repo *git.Repository
	dir  string
}

type CloneOptions struct {
	URL   string
	Ref   string
	Depth int
	Token string
}

func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open repo %s", dir)
	}
	return &Repo{repo: r, dir: dir}, nil
}

func Clone(ctx context.Context, dir string, opts CloneOptions) (*Repo, error) {
	cloneOpts := &git.CloneOptions{
		URL:   opts.URL,
		Depth: opts.Depth,
		Auth:  basicAuth(opts.Token),
	}
	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
		cloneOpts.SingleBranch = true
	}
	r, err := git.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "clone %s", opts.URL)
	}
	return &Repo{repo: r, dir: dir}, nil
}

// Init creates a non-bare repository at dir. Used by tests and watch mode.
func Init(dir string) (*Repo, error) {
	r, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, errors.Wrapf(err, "init repo %s", dir)
	}
	return &Repo{repo: r, dir: dir}, nil
}

// InitBare creates a bare repository at dir, usable as a push target.
func InitBare(dir string) (*Repo, error) {
	r, err := git.PlainInit(dir, true)
	if err != nil {
		return nil, errors.Wrapf(err, "init bare repo %s", dir)
	}
	return &Repo{repo: r, dir: dir}, nil
}

func (r *Repo) Dir() string {
	return r.dir
}

func (r *Repo) Checkout(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "worktree")
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	})
	return errors.Wrapf(err, "checkout %s", branch)
}

func (r *Repo) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, errors.Wrap(err, "worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return false, errors.Wrap(err, "status")
	}
	return status.IsClean(), nil
}

// CommitAll stages the given paths (all changes when paths is empty) and
// commits. Returns ErrNothingToCommit when staging leaves nothing to record.
func (r *Repo) CommitAll(message, authorName, authorEmail string, paths []string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "worktree")
	}

	if len(paths) == 0 {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return "", errors.Wrap(err, "stage all")
		}
	} else {
		for _, p := range paths {
			if err := wt.AddGlob(p); err != nil {
				return "", errors.Wrapf(err, "stage %s", p)
			}
		}
	}

	status, err := wt.Status()
	if err != nil {
		return "", errors.Wrap(err, "status")
	}
	if status.IsClean() {
		return "", ErrNothingToCommit
	}

	if authorName == "" {
		authorName = "mejora"
	}
	if authorEmail == "" {
		authorEmail = "mejora@localhost"
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return hash.String(), nil
}

// Push pushes the current branch. An already-up-to-date remote is success;
// every other failure (non-fast-forward included) is returned as-is.
func (r *Repo) Push(ctx context.Context, remote, token string) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		Auth:       basicAuth(token),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return errors.Wrapf(err, "push to %s", remote)
}

// Head returns the current branch short name and commit hash.
func (r *Repo) Head() (branch, hash string, err error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", "", errors.Wrap(err, "head")
	}
	return ref.Name().Short(), ref.Hash().String(), nil
}

// CreateRemote registers a named remote; it is a no-op if it already exists.
func (r *Repo) CreateRemote(name, url string) error {
	_, err := r.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if errors.Is(err, git.ErrRemoteExists) {
		return nil
	}
	return errors.Wrapf(err, "create remote %s", name)
}

func basicAuth(token string) *githttp.BasicAuth {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}
}
