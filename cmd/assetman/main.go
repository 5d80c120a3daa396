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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"assetman/cmd/assetman/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "assetman",
		Short: "Batch operations for hierarchical geospatial asset catalogs",
		Long: `assetman applies tree-scoped operations to a remote asset catalog:
recursive copy, move, delete, permission changes and metadata removal,
with bounded concurrency and per-node failure accounting. It also
monitors and cancels the catalog's asynchronous tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts := addRootFlags(ctx, rootCmd)

	rootCmd.AddCommand(
		commands.NewCopyCmd(opts),
		commands.NewMoveCmd(opts),
		commands.NewDeleteCmd(opts),
		commands.NewAccessCmd(opts),
		commands.NewDeletePropertyCmd(opts),
		commands.NewTasksCmd(opts),
		commands.NewCancelCmd(opts),
		commands.NewReportCmd(opts),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		opts.Console.Error(err.Error())
		os.Exit(1)
	}
}
