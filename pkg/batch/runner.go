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

package batch

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"assetman/pkg/catalog"
	"assetman/pkg/walker"
)

// Runner wires the walker, dispatcher, scheduler and aggregator into the
// single entry point for tree-scoped batch operations.
type Runner struct {
	client      catalog.Client
	walker      *walker.Walker
	maxParallel int
	retry       catalog.RetryPolicy
	progress    func(NodeOutcome)
	planned     func(total int)
}

// RunOption customizes a Runner
type RunOption func(*Runner)

// WithMaxParallel bounds the number of concurrent remote calls
func WithMaxParallel(n int) RunOption {
	return func(r *Runner) {
		r.maxParallel = n
	}
}

// WithRetryPolicy overrides the per-call retry policy
func WithRetryPolicy(p catalog.RetryPolicy) RunOption {
	return func(r *Runner) {
		r.retry = p
	}
}

// WithProgress registers a callback invoked once per settled node, so long
// batches surface partial progress as they run
func WithProgress(fn func(NodeOutcome)) RunOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithPlanned registers a callback invoked with the node count once the full
// work set is known. Only operations that buffer the walk up front (Delete)
// can report a total; streaming operations never invoke it.
func WithPlanned(fn func(total int)) RunOption {
	return func(r *Runner) {
		r.planned = fn
	}
}

// NewRunner builds a Runner over the catalog client
func NewRunner(client catalog.Client, opts ...RunOption) *Runner {
	r := &Runner{
		client:      client,
		maxParallel: 10,
		retry:       catalog.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.walker = walker.New(client, walker.WithRetryPolicy(r.retry))
	return r
}

// Run executes one batch operation and returns its report. The returned
// error covers only conditions that prevent the walk from starting (invalid
// request, unresolvable root); per-node failures never abort the batch and
// surface exclusively in the report; a report where zero nodes succeeded is
// still a valid report.
func (r *Runner) Run(ctx context.Context, req *Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Errorf("invalid request: %w", err)
	}
	ctx = zerolog.Ctx(ctx).With().
		Str("request_id", req.ID).
		Str("op", req.Kind.String()).
		Logger().WithContext(ctx)

	roots, err := r.walker.Roots(ctx, req.SourceRoot)
	if err != nil {
		return nil, err
	}

	agg := NewAggregator(r.progress)
	disp := NewDispatcher(r.client, r.retry)
	sched := NewScheduler(r.maxParallel)

	switch req.Kind {
	case OpDelete:
		r.runDelete(ctx, roots, req, disp, sched, agg)
	case OpCopy, OpMove:
		r.runCopyMove(ctx, roots, req, disp, sched, agg)
	default:
		r.runUnordered(ctx, roots, req, disp, sched, agg)
	}

	report := agg.Report(req.ID)
	zerolog.Ctx(ctx).Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("batch finished")
	return report, nil
}

// runUnordered handles SetAccess and DeleteProperty: no structural ordering,
// nodes dispatched as discovered
func (r *Runner) runUnordered(ctx context.Context, roots []*catalog.Asset, req *Request, disp *Dispatcher, sched *Scheduler, agg *Aggregator) {
	nodes := make(chan *catalog.Asset)
	go func() {
		defer close(nodes)
		for _, root := range roots {
			for item := range r.walker.WalkFrom(ctx, root) {
				if item.Err != nil {
					agg.Record(listFailure(item))
					continue
				}
				nodes <- item.Node
			}
		}
	}()
	sched.RunUnordered(ctx, nodes, func(ctx context.Context, node *catalog.Asset) NodeOutcome {
		return disp.Apply(ctx, node, "", req)
	}, agg.Record)
}

// runDelete buffers the full walk, then deletes bottom-up
func (r *Runner) runDelete(ctx context.Context, roots []*catalog.Asset, req *Request, disp *Dispatcher, sched *Scheduler, agg *Aggregator) {
	var nodes []*catalog.Asset
	for _, root := range roots {
		for item := range r.walker.WalkFrom(ctx, root) {
			if item.Err != nil {
				agg.Record(listFailure(item))
				continue
			}
			nodes = append(nodes, item.Node)
		}
	}
	if r.planned != nil {
		r.planned(len(nodes))
	}
	sched.RunChildrenFirst(ctx, nodes, func(ctx context.Context, node *catalog.Asset) NodeOutcome {
		return disp.Apply(ctx, node, "", req)
	}, agg.Record)
}

// runCopyMove walks each resolved root independently so destination paths
// can be computed by prefix arithmetic against that root
func (r *Runner) runCopyMove(ctx context.Context, roots []*catalog.Asset, req *Request, disp *Dispatcher, sched *Scheduler, agg *Aggregator) {
	for _, root := range roots {
		destBase := req.DestRoot
		if root.Path != req.SourceRoot {
			// Wildcard match: each expansion keeps its own name under the
			// destination root
			destBase = req.DestRoot + "/" + root.Name()
		}

		var moved []*catalog.Asset
		nodes := make(chan *catalog.Asset)
		go func() {
			defer close(nodes)
			if req.ChildrenOnly {
				r.feedChildrenOnly(ctx, root, agg, nodes)
				return
			}
			for item := range r.walker.WalkFrom(ctx, root) {
				if item.Err != nil {
					agg.Record(listFailure(item))
					continue
				}
				if req.Kind == OpMove {
					moved = append(moved, item.Node)
				}
				nodes <- item.Node
			}
		}()

		worker := func(ctx context.Context, node *catalog.Asset) NodeOutcome {
			var dest string
			if req.ChildrenOnly && node.Path != root.Path {
				dest = req.DestRoot + "/" + node.Name()
			} else if req.ChildrenOnly {
				dest = req.DestRoot
			} else {
				dest = destFor(root.Path, destBase, node.Path)
			}
			return disp.Apply(ctx, node, dest, req)
		}
		sched.RunParentFirst(ctx, nodes, worker, agg.Record)

		if req.Kind == OpMove && !req.ChildrenOnly {
			r.deleteMovedContainers(ctx, moved, agg)
		}
	}
}

// feedChildrenOnly emits the root and its direct children only: the
// non-mirrored copy mode. Container children are not recursed into and are
// recorded as skipped.
func (r *Runner) feedChildrenOnly(ctx context.Context, root *catalog.Asset, agg *Aggregator, nodes chan<- *catalog.Asset) {
	nodes <- root
	children, err := r.walker.Children(ctx, root.Path)
	if err != nil {
		agg.Record(NodeOutcome{
			Path:      root.Path,
			Type:      root.Type,
			Attempted: true,
			ErrorKind: catalog.KindOf(err),
			Err:       err,
		})
		return
	}
	for _, child := range children {
		if child.Type.IsContainer() {
			agg.Record(skipped(child))
			continue
		}
		select {
		case nodes <- child:
		case <-ctx.Done():
			return
		}
	}
}

// deleteMovedContainers finishes a mirrored Move: source containers are
// deleted bottom-up, but only when every node underneath them moved
// successfully, so a partial move never drops source data.
func (r *Runner) deleteMovedContainers(ctx context.Context, nodes []*catalog.Asset, agg *Aggregator) {
	var containers []*catalog.Asset
	for _, n := range nodes {
		if n.Type.IsContainer() {
			containers = append(containers, n)
		}
	}
	sort.Slice(containers, func(i, j int) bool {
		return catalog.Depth(containers[i].Path) > catalog.Depth(containers[j].Path)
	})

	for _, c := range containers {
		if !agg.SubtreeSucceeded(c.Path) {
			zerolog.Ctx(ctx).Debug().Str("path", c.Path).Msg("subtree not fully moved, keeping source container")
			continue
		}
		retries, err := catalog.Retry(ctx, r.retry, func() error {
			return r.client.DeleteAsset(ctx, c.Path)
		})
		if err != nil {
			agg.Record(NodeOutcome{
				Path:      c.Path,
				Type:      c.Type,
				Attempted: true,
				ErrorKind: catalog.KindOf(err),
				Err:       err,
				Retries:   retries,
			})
		}
	}
}

// listFailure converts a walker listing failure into the failed outcome of
// the container whose children became unreachable
func listFailure(item walker.Item) NodeOutcome {
	return NodeOutcome{
		Path:      item.Node.Path,
		Type:      item.Node.Type,
		Attempted: true,
		ErrorKind: catalog.KindOf(item.Err),
		Err:       item.Err,
	}
}
