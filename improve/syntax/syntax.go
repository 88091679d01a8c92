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

// Package syntax validates improvement candidates before they touch the
// working tree. A candidate that does not parse is rejected outright; files
// with no registered grammar pass by default.
package syntax

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/pkg/errors"
)

// ErrSyntax marks a candidate rejected by the parser.
var ErrSyntax = errors.New("syntax error")

var grammars = map[string]*sitter.Language{
	".py":  python.GetLanguage(),
	".go":  golang.GetLanguage(),
	".js":  javascript.GetLanguage(),
	".mjs": javascript.GetLanguage(),
}

// LanguageName returns the grammar name for a path ("python", "go", ...)
// or "" when no grammar is registered. Used for prompt language tags.
func LanguageName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".js", ".mjs":
		return "javascript"
	}
	return ""
}

// Check parses src with the grammar registered for path's extension and
// returns ErrSyntax (wrapped with the first error location) when the tree
// contains errors. Unknown extensions are valid by default.
func Check(ctx context.Context, path string, src []byte) error {
	lang, ok := grammars[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	if node := firstError(root); node != nil {
		pt := node.StartPoint()
		return errors.Wrapf(ErrSyntax, "%s:%d:%d", path, pt.Row+1, pt.Column+1)
	}
	return errors.Wrapf(ErrSyntax, "%s", path)
}

// firstError descends into the first subtree carrying an error and returns
// the innermost ERROR or missing node.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		if e := firstError(child); e != nil {
			return e
		}
	}
	if n.HasError() {
		return n
	}
	return nil
}
