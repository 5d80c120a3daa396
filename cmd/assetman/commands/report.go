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

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/report"
)

// NewReportCmd creates the report command
func NewReportCmd(o *opts.RootOpts) *cobra.Command {
	var (
		csvPath   string
		showQuota bool
	)

	cmd := &cobra.Command{
		Use:   "report ROOT",
		Short: "Summarize storage usage under a subtree",
		Long: `Report walks the subtree under ROOT and prints per-container size and
item counts, with a grand total. Containers whose children could not be
listed are excluded from the totals and counted separately. --csv
writes one row per asset; --quota also prints the asset root's usage
against its project limits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := o.NewClient(cmd.Context())
			if err != nil {
				return err
			}
			scanner := report.NewScanner(client, report.WithRetryPolicy(o.RetryPolicy()))

			usage, err := scanner.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, row := range usage.Rows {
				if !row.Type.IsContainer() {
					continue
				}
				o.Console.Infof("%-45s %10s  %d items",
					row.Path, report.HumanSize(row.SizeBytes), row.Items)
			}
			o.Console.Infof("total: %s across %d assets",
				report.HumanSize(usage.TotalBytes), usage.TotalItems)
			if usage.Unreachable > 0 {
				o.Console.Warning(fmt.Sprintf("%d container(s) could not be listed", usage.Unreachable))
			}

			if showQuota {
				quota, err := scanner.Quota(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, line := range report.FormatQuota(quota) {
					o.Console.Infof("%s", line)
				}
			}

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return errors.Errorf("creating report file: %w", err)
				}
				defer f.Close()
				if err := usage.WriteCSV(f); err != nil {
					return err
				}
				o.Console.Success(fmt.Sprintf("report written to %s", csvPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write per-asset rows as CSV to this file")
	cmd.Flags().BoolVar(&showQuota, "quota", false, "also print usage against the asset root's limits")

	return cmd
}
