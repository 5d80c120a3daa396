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

package tasks

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"gitlab.com/tozd/go/errors"
)

// csvHeader is the column layout of the task report export
var csvHeader = []string{
	"task_id", "kind", "description", "submitted", "updated",
	"runtime_seconds", "resource_used", "state",
}

// WriteCSV exports tasks as a CSV report, one row per task, header first.
// Timestamps are RFC 3339 in UTC; zero timestamps export as empty cells.
func WriteCSV(w io.Writer, tasks []Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Errorf("writing report header: %w", err)
	}
	for _, t := range tasks {
		row := []string{
			t.ID,
			t.Kind.String(),
			t.Description,
			formatTime(t.SubmittedAt),
			formatTime(t.UpdatedAt),
			fmt.Sprintf("%.0f", t.Runtime().Seconds()),
			fmt.Sprintf("%.2f", t.ResourceUsed),
			t.State.String(),
		}
		if err := cw.Write(row); err != nil {
			return errors.Errorf("writing report row for task %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Errorf("flushing report: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
