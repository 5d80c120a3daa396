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
	"strings"
	"sync"

	"assetman/pkg/catalog"
)

// NodeOutcome records what happened to one node during a batch run
type NodeOutcome struct {
	Path string
	Type catalog.AssetType
	// Attempted is false when the node was never dispatched (ancestor
	// failure or cancellation); such nodes count as skipped, not failed
	Attempted bool
	Succeeded bool
	// ErrorKind classifies the failure when Attempted && !Succeeded
	ErrorKind catalog.ErrorKind
	Err       error
	// Retries counts transient retries spent on this node
	Retries int
}

// Skipped reports whether the node was never attempted
func (o NodeOutcome) Skipped() bool {
	return !o.Attempted
}

// Failed reports whether a remote call was attempted and rejected
func (o NodeOutcome) Failed() bool {
	return o.Attempted && !o.Succeeded
}

// Report is the terminal, immutable summary of one batch operation
type Report struct {
	RequestID string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	// Failures lists failed and skipped nodes in completion order
	Failures []NodeOutcome
}

// 🧮 Aggregator folds the stream of per-node outcomes into a Report. Pure
// accounting; it makes no remote calls. Safe for concurrent Record calls.
type Aggregator struct {
	mu       sync.Mutex
	byPath   map[string]NodeOutcome
	order    []string
	progress func(NodeOutcome)
}

// NewAggregator builds an empty aggregator; progress, when non-nil, is
// invoked once per recorded outcome so long batches can report incrementally
func NewAggregator(progress func(NodeOutcome)) *Aggregator {
	return &Aggregator{
		byPath:   map[string]NodeOutcome{},
		progress: progress,
	}
}

// Record stores an outcome. A node may be reported twice (e.g. a container
// whose children listing failed after its own operation succeeded); a
// failure always wins over a success for the same path, never the reverse.
func (a *Aggregator) Record(o NodeOutcome) {
	a.mu.Lock()
	prev, seen := a.byPath[o.Path]
	if !seen {
		a.order = append(a.order, o.Path)
		a.byPath[o.Path] = o
	} else if prev.Succeeded && !o.Succeeded {
		o.Retries += prev.Retries
		a.byPath[o.Path] = o
	}
	a.mu.Unlock()

	if a.progress != nil && !seen {
		a.progress(o)
	}
}

// Outcome returns the recorded outcome for a path
func (a *Aggregator) Outcome(path string) (NodeOutcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.byPath[path]
	return o, ok
}

// SubtreeSucceeded reports whether the node at root and every recorded
// descendant of it succeeded
func (a *Aggregator) SubtreeSucceeded(root string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	prefix := root + "/"
	for path, o := range a.byPath {
		if path != root && !strings.HasPrefix(path, prefix) {
			continue
		}
		if !o.Succeeded {
			return false
		}
	}
	return true
}

// Report finalizes the accounting. Total = Succeeded + Failed + Skipped
// holds by construction.
func (a *Aggregator) Report(requestID string) *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := &Report{RequestID: requestID}
	for _, path := range a.order {
		o := a.byPath[path]
		r.Total++
		switch {
		case o.Succeeded:
			r.Succeeded++
		case o.Skipped():
			r.Skipped++
			r.Failures = append(r.Failures, o)
		default:
			r.Failed++
			r.Failures = append(r.Failures, o)
		}
	}
	return r
}
