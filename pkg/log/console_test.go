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

package log

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"

	"assetman/pkg/batch"
	"assetman/pkg/catalog"
)

func TestNodeOutcomeLines(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	c := New(&buf, zerolog.Disabled)

	c.NodeOutcome(batch.NodeOutcome{Path: "p/a", Attempted: true, Succeeded: true})
	c.NodeOutcome(batch.NodeOutcome{Path: "p/b", Attempted: false})
	c.NodeOutcome(batch.NodeOutcome{Path: "p/c", Attempted: true,
		ErrorKind: catalog.KindPermissionDenied, Err: errors.New("denied")})

	out := buf.String()
	assert.Contains(t, out, "✓ p/a")
	assert.Contains(t, out, "- p/b")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "✗ p/c")
	assert.Contains(t, out, "permission_denied")
}

func TestProgressBarLifecycle(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	c := New(&buf, zerolog.Disabled)

	c.StartProgress(2)
	c.NodeOutcome(batch.NodeOutcome{Path: "p/a", Attempted: true, Succeeded: true})
	c.NodeOutcome(batch.NodeOutcome{Path: "p/b", Attempted: true, Succeeded: true})
	c.Summary(&batch.Report{Total: 2, Succeeded: 2})

	out := buf.String()
	assert.Contains(t, out, "processing")
	assert.Contains(t, out, "✓ p/a")
	assert.Contains(t, out, "total 2")

	// A second summary after the bar stopped must not panic
	c.Summary(&batch.Report{Total: 2, Succeeded: 2})
}

func TestStartProgressUnknownTotalIsNoop(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	c := New(&buf, zerolog.Disabled)

	c.StartProgress(0)
	assert.NotContains(t, buf.String(), "processing")

	c.NodeOutcome(batch.NodeOutcome{Path: "p/a", Attempted: true, Succeeded: true})
	assert.Contains(t, buf.String(), "✓ p/a")
}

func TestSummaryBlock(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	c := New(&buf, zerolog.Disabled)

	c.Summary(&batch.Report{
		Total:     3,
		Succeeded: 1,
		Failed:    1,
		Skipped:   1,
		Failures: []batch.NodeOutcome{
			{Path: "p/bad", Attempted: true, Err: errors.New("boom")},
			{Path: "p/skip", Attempted: false},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "total 3")
	assert.Contains(t, out, "ok 1")
	assert.Contains(t, out, "failed 1")
	assert.Contains(t, out, "skipped 1")
	assert.Contains(t, out, "p/bad: boom")
	// Skipped nodes are counted but not itemized
	assert.NotContains(t, out, "p/skip:")
}
