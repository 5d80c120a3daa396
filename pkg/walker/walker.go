// Copyright 2025 the assetman authors
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

// Package walker discovers the full subtree under a catalog path as a lazy
// stream, guaranteeing that every node is yielded before any of its
// descendants.
package walker

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"assetman/pkg/catalog"
)

// Item is one event on the walk stream: a discovered node, or a listing
// failure attached to the container whose children are now unreachable.
type Item struct {
	Node *catalog.Asset
	// Err is set when listing Node's children failed after retries. The node
	// itself was already yielded; its children will never appear.
	Err error
}

// Walker streams catalog subtrees. A Walker is stateless between calls;
// every Walk re-discovers from fresh remote calls.
type Walker struct {
	client catalog.Client
	retry  catalog.RetryPolicy
}

// Option customizes a Walker
type Option func(*Walker)

// WithRetryPolicy overrides the backoff applied to transient list failures
func WithRetryPolicy(p catalog.RetryPolicy) Option {
	return func(w *Walker) {
		w.retry = p
	}
}

// New builds a Walker over the given catalog client
func New(client catalog.Client, opts ...Option) *Walker {
	w := &Walker{
		client: client,
		retry:  catalog.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk resolves root (expanding shell-style wildcards against the catalog)
// and streams every node underneath it, breadth first, parents strictly
// before children. The returned error covers conditions that prevent the
// walk from starting at all: the root cannot be resolved, or a wildcard
// matches nothing. Failures encountered mid-walk arrive on the stream as
// Items with Err set.
//
// The stream is produced by a single goroutine and closed when discovery
// finishes or ctx is cancelled; the walk is finite and not restartable.
func (w *Walker) Walk(ctx context.Context, root string) (<-chan Item, error) {
	roots, err := w.Roots(ctx, root)
	if err != nil {
		return nil, err
	}

	out := make(chan Item)
	go func() {
		defer close(out)
		for _, r := range roots {
			w.walkOne(ctx, r, out)
		}
	}()
	return out, nil
}

// WalkFrom streams the subtree under one already-resolved root. Callers that
// need per-root destination arithmetic resolve roots first via Roots and walk
// each independently.
func (w *Walker) WalkFrom(ctx context.Context, root *catalog.Asset) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		w.walkOne(ctx, root, out)
	}()
	return out
}

// Children lists the direct children of parent, retrying transient failures
func (w *Walker) Children(ctx context.Context, parent string) ([]*catalog.Asset, error) {
	return w.listWithRetry(ctx, parent)
}

// walkOne runs the breadth-first expansion of a single resolved root
func (w *Walker) walkOne(ctx context.Context, root *catalog.Asset, out chan<- Item) {
	logger := zerolog.Ctx(ctx)
	queue := []*catalog.Asset{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		select {
		case out <- Item{Node: node}:
		case <-ctx.Done():
			return
		}

		if !node.Type.IsContainer() {
			continue
		}

		var children []*catalog.Asset
		_, err := catalog.Retry(ctx, w.retry, func() error {
			var lerr error
			children, lerr = w.client.ListAssets(ctx, node.Path)
			return lerr
		})
		if err != nil {
			logger.Warn().Str("path", node.Path).Err(err).Msg("listing children failed, subtree unreachable")
			select {
			case out <- Item{Node: node, Err: err}:
			case <-ctx.Done():
			}
			continue
		}
		queue = append(queue, children...)
	}
}

// Roots resolves the root argument to concrete assets. A literal path
// resolves via getAsset; a path with wildcard segments is expanded against
// the live tree, each match walked independently.
func (w *Walker) Roots(ctx context.Context, root string) ([]*catalog.Asset, error) {
	if !hasWildcard(root) {
		asset, err := w.getWithRetry(ctx, root)
		if err != nil {
			if catalog.IsNotFound(err) {
				return nil, errors.Errorf("root %s not found: %w", root, err)
			}
			return nil, errors.Errorf("resolving root %s: %w", root, err)
		}
		return []*catalog.Asset{asset}, nil
	}

	matches, err := w.expandPattern(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("pattern %s matched no assets", root)
	}
	return matches, nil
}

// expandPattern walks the path segment by segment, listing the parent at the
// first wildcard segment and filtering its children by pattern. Matching is
// case-sensitive and anchors at full segment boundaries.
func (w *Walker) expandPattern(ctx context.Context, pattern string) ([]*catalog.Asset, error) {
	segments := strings.Split(pattern, "/")

	idx := -1
	for i, seg := range segments {
		if hasWildcard(seg) {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil, errors.Errorf("pattern %s has no literal parent to expand against", pattern)
	}

	parent := strings.Join(segments[:idx], "/")
	children, err := w.listWithRetry(ctx, parent)
	if err != nil {
		return nil, errors.Errorf("expanding pattern under %s: %w", parent, err)
	}

	rest := segments[idx+1:]
	var matches []*catalog.Asset
	for _, child := range children {
		ok, merr := doublestar.Match(segments[idx], child.Name())
		if merr != nil {
			return nil, errors.Errorf("invalid pattern %q: %w", segments[idx], merr)
		}
		if !ok {
			continue
		}
		if len(rest) == 0 {
			matches = append(matches, child)
			continue
		}
		candidate := child.Path + "/" + strings.Join(rest, "/")
		if !hasWildcard(candidate) {
			if asset, gerr := w.getWithRetry(ctx, candidate); gerr == nil {
				matches = append(matches, asset)
			}
			continue
		}
		// Remaining segments may themselves contain wildcards
		sub, serr := w.expandPattern(ctx, candidate)
		if serr == nil {
			matches = append(matches, sub...)
		}
	}
	return matches, nil
}

func (w *Walker) getWithRetry(ctx context.Context, path string) (*catalog.Asset, error) {
	var asset *catalog.Asset
	_, err := catalog.Retry(ctx, w.retry, func() error {
		var gerr error
		asset, gerr = w.client.GetAsset(ctx, path)
		return gerr
	})
	return asset, err
}

func (w *Walker) listWithRetry(ctx context.Context, parent string) ([]*catalog.Asset, error) {
	var children []*catalog.Asset
	_, err := catalog.Retry(ctx, w.retry, func() error {
		var lerr error
		children, lerr = w.client.ListAssets(ctx, parent)
		return lerr
	})
	return children, err
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
