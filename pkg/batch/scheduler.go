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
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"assetman/pkg/catalog"
)

// Scheduler bounds the number of in-flight remote calls and enforces the
// structural ordering each operation kind needs. The semaphore is the only
// shared mutable resource of the engine and the scheduler owns it
// exclusively.
type Scheduler struct {
	sem *semaphore.Weighted
}

// NewScheduler builds a scheduler allowing at most maxParallel concurrent
// dispatches
func NewScheduler(maxParallel int) *Scheduler {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Scheduler{sem: semaphore.NewWeighted(int64(maxParallel))}
}

// workFunc runs the operation for one node and returns its outcome
type workFunc func(ctx context.Context, node *catalog.Asset) NodeOutcome

// skipped builds the outcome for a node that was never dispatched
func skipped(node *catalog.Asset) NodeOutcome {
	return NodeOutcome{Path: node.Path, Type: node.Type, Attempted: false}
}

// RunUnordered dispatches every node from the stream with no ordering
// constraint (SetAccess, DeleteProperty). Cancellation stops new dispatches;
// nodes never dispatched are recorded as skipped.
func (s *Scheduler) RunUnordered(ctx context.Context, nodes <-chan *catalog.Asset, work workFunc, record func(NodeOutcome)) {
	var wg sync.WaitGroup
	for node := range nodes {
		node := node
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.sem.Acquire(ctx, 1); err != nil {
				record(skipped(node))
				return
			}
			out := work(ctx, node)
			s.sem.Release(1)
			record(out)
		}()
	}
	wg.Wait()
}

// gate publishes a container's outcome to its children: closed once the
// container is settled, ok true only when it succeeded
type gate struct {
	done chan struct{}
	ok   bool
}

// RunParentFirst dispatches nodes so that no node runs before its parent
// container succeeded (Copy/Move: the destination container must exist
// before children are written into it). A failed or skipped container marks
// its whole subtree skipped.
//
// The stream must yield parents strictly before children, which the walker
// guarantees.
func (s *Scheduler) RunParentFirst(ctx context.Context, nodes <-chan *catalog.Asset, work workFunc, record func(NodeOutcome)) {
	var wg sync.WaitGroup
	gates := map[string]*gate{}

	for node := range nodes {
		node := node
		parent := gates[catalog.ParentPath(node.Path)]
		var own *gate
		if node.Type.IsContainer() {
			own = &gate{done: make(chan struct{})}
			gates[node.Path] = own
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			settle := func(ok bool) {
				if own != nil {
					own.ok = ok
					close(own.done)
				}
			}

			if parent != nil {
				select {
				case <-parent.done:
				case <-ctx.Done():
					record(skipped(node))
					settle(false)
					return
				}
				if !parent.ok {
					record(skipped(node))
					settle(false)
					return
				}
			}

			if err := s.sem.Acquire(ctx, 1); err != nil {
				record(skipped(node))
				settle(false)
				return
			}
			out := work(ctx, node)
			s.sem.Release(1)
			record(out)
			settle(out.Succeeded)
		}()
	}
	wg.Wait()
}

// countdown tracks how many direct children of a container are still
// unsettled; ready closes when the count reaches zero
type countdown struct {
	remaining atomic.Int32
	ready     chan struct{}
}

func (c *countdown) settleChild() {
	if c.remaining.Add(-1) == 0 {
		close(c.ready)
	}
}

// RunChildrenFirst dispatches nodes so that no container runs before every
// one of its descendants has completed (succeeded or exhausted retries):
// the Delete ordering, since the catalog rejects deleting a non-empty
// container. This requires the full node set up front, so callers buffer
// the walk before invoking it.
func (s *Scheduler) RunChildrenFirst(ctx context.Context, nodes []*catalog.Asset, work workFunc, record func(NodeOutcome)) {
	counts := make(map[string]*countdown, len(nodes))
	for _, node := range nodes {
		counts[node.Path] = &countdown{ready: make(chan struct{})}
	}
	for _, node := range nodes {
		if parent, ok := counts[catalog.ParentPath(node.Path)]; ok {
			parent.remaining.Add(1)
		}
	}
	for _, c := range counts {
		if c.remaining.Load() == 0 {
			close(c.ready)
		}
	}

	var wg sync.WaitGroup
	for _, node := range nodes {
		node := node
		own := counts[node.Path]
		parent := counts[catalog.ParentPath(node.Path)]

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if parent != nil {
					parent.settleChild()
				}
			}()

			select {
			case <-own.ready:
			case <-ctx.Done():
				record(skipped(node))
				return
			}

			if err := s.sem.Acquire(ctx, 1); err != nil {
				record(skipped(node))
				return
			}
			out := work(ctx, node)
			s.sem.Release(1)
			record(out)
		}()
	}
	wg.Wait()
}
