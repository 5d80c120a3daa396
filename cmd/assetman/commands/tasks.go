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

package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/tasks"
)

// NewTasksCmd creates the tasks command
func NewTasksCmd(o *opts.RootOpts) *cobra.Command {
	var (
		stateName string
		taskID    string
		csvPath   string
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Poll and list asynchronous catalog tasks",
		Long: `Tasks polls the catalog once and lists the jobs it reports, with a
count-by-state summary. --state narrows the listing to one state,
--id to one task. --csv additionally writes the listing as a CSV
report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := o.NewClient(cmd.Context())
			if err != nil {
				return err
			}
			monitor := tasks.NewMonitor(client, tasks.WithRetryPolicy(o.RetryPolicy()))

			filter := tasks.Filter{}
			if taskID != "" {
				filter = tasks.ByID(taskID)
			} else if stateName != "" {
				state, err := parseStateName(stateName)
				if err != nil {
					return err
				}
				filter = tasks.ByState(state)
			}

			listed, err := monitor.Poll(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if taskID != "" {
				for _, t := range listed {
					for _, line := range taskDetailLines(t) {
						o.Console.Infof("%s", line)
					}
				}
			} else {
				for _, t := range listed {
					o.Console.Infof("%-28s %-10s %-10s %.0fs  %s",
						t.ID, t.Kind, t.State, t.Runtime().Seconds(), t.Description)
				}
			}
			printSummary(o, monitor.Summary())

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return errors.Errorf("creating report file: %w", err)
				}
				defer f.Close()
				if err := tasks.WriteCSV(f, listed); err != nil {
					return err
				}
				o.Console.Success(fmt.Sprintf("report written to %s", csvPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stateName, "state", "", "only list tasks in this state (pending, running, completed, failed, cancelled)")
	cmd.Flags().StringVar(&taskID, "id", "", "only list the task with this id")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the listing as a CSV report to this file")

	return cmd
}

// taskDetailLines renders the full record of one task: identity, timestamps
// and the resource spend the catalog reports
func taskDetailLines(t tasks.Task) []string {
	lines := []string{
		fmt.Sprintf("%s  %s  %s", t.ID, t.Kind, t.State),
		fmt.Sprintf("  description: %s", t.Description),
		fmt.Sprintf("  submitted: %s", t.SubmittedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("  updated: %s", t.UpdatedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("  runtime: %.0fs", t.Runtime().Seconds()),
	}
	if t.ResourceUsed > 0 {
		lines = append(lines, fmt.Sprintf("  resource used: %.2f", t.ResourceUsed))
	}
	return lines
}

func parseStateName(name string) (tasks.State, error) {
	for s := tasks.StateUnsubmitted; s <= tasks.StateUnknown; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return tasks.StateUnknown, errors.Errorf("unknown task state %q", name)
}

func printSummary(o *opts.RootOpts, counts map[tasks.State]int) {
	states := make([]tasks.State, 0, len(counts))
	for s := range counts {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	line := ""
	total := 0
	for _, s := range states {
		line += fmt.Sprintf("%s %d  ", s, counts[s])
		total += counts[s]
	}
	o.Console.Infof("%d tasks  %s", total, line)
}
