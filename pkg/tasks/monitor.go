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

// Package tasks tracks asynchronous remote jobs (uploads, exports,
// ingestions) as a poll-driven state machine. State only ever changes by
// polling the catalog; the monitor never infers completion locally and runs
// no background timers, so callers decide when to poll.
package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"assetman/pkg/catalog"
)

// State is the monitor's view of one remote job
type State int

const (
	StateUnsubmitted State = iota
	StatePending
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
	// StateUnknown covers remote states the monitor does not recognize;
	// treated as non-terminal until a later poll resolves it
	StateUnknown
)

// String returns the lower-case state name
func (s State) String() string {
	switch s {
	case StateUnsubmitted:
		return "unsubmitted"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ParseState folds the catalog's wire state names into the monitor's states
func ParseState(s string) State {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNSUBMITTED":
		return StateUnsubmitted
	case "READY", "PENDING":
		return StatePending
	case "RUNNING":
		return StateRunning
	case "COMPLETED", "SUCCEEDED":
		return StateCompleted
	case "FAILED":
		return StateFailed
	case "CANCELLED", "CANCELLING":
		return StateCancelled
	default:
		return StateUnknown
	}
}

// Kind classifies what a remote job does
type Kind int

const (
	KindOther Kind = iota
	KindUpload
	KindExport
	KindIngestion
)

// String returns the lower-case kind name
func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload"
	case KindExport:
		return "export"
	case KindIngestion:
		return "ingestion"
	default:
		return "other"
	}
}

// ParseKind folds the catalog's task type names into kinds
func ParseKind(s string) Kind {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(u, "UPLOAD"):
		return KindUpload
	case strings.HasPrefix(u, "EXPORT"):
		return KindExport
	case strings.HasPrefix(u, "INGEST"):
		return KindIngestion
	default:
		return KindOther
	}
}

// Task is the monitor's record of one remote job. Records are created when
// a job is first seen, mutated only by Poll, and never deleted:
// cancellation just moves them to StateCancelled.
type Task struct {
	ID          string
	Kind        Kind
	State       State
	Description string
	// SubmittedAt is the remote creation time
	SubmittedAt time.Time
	// UpdatedAt is the remote's last transition time
	UpdatedAt time.Time
	// LastPolledAt is when this monitor last refreshed the record
	LastPolledAt time.Time
	// ResourceUsed is the compute spend the catalog reports, when any
	ResourceUsed float64
}

// Runtime is the wall time between submission and the last remote update
func (t Task) Runtime() time.Duration {
	if t.SubmittedAt.IsZero() || t.UpdatedAt.Before(t.SubmittedAt) {
		return 0
	}
	return t.UpdatedAt.Sub(t.SubmittedAt)
}

// Filter narrows a Poll to one state or one id; the zero Filter matches all
type Filter struct {
	State *State
	ID    string
}

// ByState builds a filter matching one state
func ByState(s State) Filter {
	return Filter{State: &s}
}

// ByID builds a filter matching one task id
func ByID(id string) Filter {
	return Filter{ID: id}
}

func (f Filter) matches(t *Task) bool {
	if f.ID != "" && t.ID != f.ID {
		return false
	}
	if f.State != nil && t.State != *f.State {
		return false
	}
	return true
}

// Monitor polls the catalog task API and keeps the last-seen record per job
// id. All methods are safe for concurrent use.
type Monitor struct {
	client catalog.Client
	retry  catalog.RetryPolicy
	now    func() time.Time

	mu       sync.Mutex
	lastSeen map[string]*Task
	lastPoll []string // ids returned by the most recent poll
}

// Option customizes a Monitor
type Option func(*Monitor)

// WithRetryPolicy overrides the backoff applied to poll calls
func WithRetryPolicy(p catalog.RetryPolicy) Option {
	return func(m *Monitor) {
		m.retry = p
	}
}

// withClock injects a deterministic clock for tests
func withClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor builds a monitor over the catalog client
func NewMonitor(client catalog.Client, opts ...Option) *Monitor {
	m := &Monitor{
		client:   client,
		retry:    catalog.DefaultRetryPolicy(),
		now:      time.Now,
		lastSeen: map[string]*Task{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Poll refreshes every tracked record with a single remote list call and
// returns the tasks matching filter, sorted by id. Repeated polls are
// idempotent: they only update State, UpdatedAt and LastPolledAt.
func (m *Monitor) Poll(ctx context.Context, filter Filter) ([]Task, error) {
	var statuses []catalog.TaskStatus
	_, err := catalog.Retry(ctx, m.retry, func() error {
		var lerr error
		statuses, lerr = m.client.ListTasks(ctx)
		return lerr
	})
	if err != nil {
		return nil, errors.Errorf("listing tasks: %w", err)
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPoll = m.lastPoll[:0]
	var out []Task
	for _, s := range statuses {
		t, ok := m.lastSeen[s.ID]
		if !ok {
			t = &Task{ID: s.ID}
			m.lastSeen[s.ID] = t
		}
		prev := t.State
		t.Kind = ParseKind(s.Kind)
		t.State = ParseState(s.State)
		t.Description = s.Description
		t.SubmittedAt = s.CreatedAt
		t.UpdatedAt = s.UpdatedAt
		t.ResourceUsed = s.ResourceUsed
		t.LastPolledAt = now
		if prev != t.State {
			zerolog.Ctx(ctx).Debug().
				Str("task_id", t.ID).
				Str("from", prev.String()).
				Str("to", t.State.String()).
				Msg("task transitioned")
		}
		m.lastPoll = append(m.lastPoll, s.ID)
		if filter.matches(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Summary groups the most recent poll's results by state and returns the
// counts. An empty map means no poll has happened yet.
func (m *Monitor) Summary() map[State]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[State]int{}
	for _, id := range m.lastPoll {
		if t, ok := m.lastSeen[id]; ok {
			counts[t.State]++
		}
	}
	return counts
}

// Task returns the last-seen record for one id
func (m *Monitor) Task(id string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lastSeen[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Cancel cancels the tasks selected by "all", "pending", "running" or a
// specific task id, and returns how many cancellations the catalog
// accepted. Selecting a class with no members returns 0 without error;
// already-terminal tasks count as rejected, not as errors.
func (m *Monitor) Cancel(ctx context.Context, selector string) (int, error) {
	ids, err := m.resolveSelector(ctx, selector)
	if err != nil {
		return 0, err
	}

	logger := zerolog.Ctx(ctx)
	accepted := 0
	for _, id := range ids {
		_, cerr := catalog.Retry(ctx, m.retry, func() error {
			return m.client.CancelTask(ctx, id)
		})
		if cerr != nil {
			logger.Warn().Str("task_id", id).Err(cerr).Msg("cancellation rejected")
			continue
		}
		accepted++
	}
	return accepted, nil
}

// resolveSelector maps a cancel selector onto concrete task ids using the
// most recent poll, refreshing first when nothing was polled yet
func (m *Monitor) resolveSelector(ctx context.Context, selector string) ([]string, error) {
	switch strings.ToLower(selector) {
	case "all", "pending", "running":
	default:
		// A bare task id; cancel it regardless of poll history
		return []string{selector}, nil
	}

	m.mu.Lock()
	polled := len(m.lastPoll) > 0
	m.mu.Unlock()
	if !polled {
		if _, err := m.Poll(ctx, Filter{}); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, id := range m.lastPoll {
		t, ok := m.lastSeen[id]
		if !ok {
			continue
		}
		switch strings.ToLower(selector) {
		case "all":
			// Every non-terminal task is cancellable, including ones the
			// monitor could not classify
			if !t.State.Terminal() {
				ids = append(ids, id)
			}
		case "pending":
			if t.State == StatePending {
				ids = append(ids, id)
			}
		case "running":
			if t.State == StateRunning {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
