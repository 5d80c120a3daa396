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

	"github.com/spf13/cobra"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/tasks"
)

// NewCancelCmd creates the cancel command
func NewCancelCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel SELECTOR",
		Short: "Cancel asynchronous catalog tasks",
		Long: `Cancel stops tasks selected by "all" (every pending or running task),
"pending", "running", or a specific task id. Selecting a class with no
members is not an error; it cancels nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := o.NewClient(cmd.Context())
			if err != nil {
				return err
			}
			monitor := tasks.NewMonitor(client, tasks.WithRetryPolicy(o.RetryPolicy()))

			accepted, err := monitor.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if accepted == 0 {
				o.Console.Warning(fmt.Sprintf("no tasks cancelled for %q", args[0]))
				return nil
			}
			o.Console.Success(fmt.Sprintf("%d cancellation(s) accepted", accepted))
			return nil
		},
	}

	return cmd
}
