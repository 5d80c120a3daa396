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

// Package commands implements the assetman subcommands
package commands

import (
	"context"
	"fmt"

	"gitlab.com/tozd/go/errors"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/batch"
)

// runBatch executes one batch request with shared wiring: client
// construction, progress reporting and the summary block. A batch that
// finished with node failures returns an error so the process exits
// non-zero, matching how partial failure should look in scripts.
func runBatch(ctx context.Context, o *opts.RootOpts, req *batch.Request) error {
	client, err := o.NewClient(ctx)
	if err != nil {
		return err
	}

	o.Console.Header(fmt.Sprintf("%s %s", req.Kind, req.SourceRoot))

	runner := batch.NewRunner(client,
		batch.WithMaxParallel(o.Config.MaxParallel),
		batch.WithRetryPolicy(o.RetryPolicy()),
		batch.WithProgress(o.Console.NodeOutcome),
		batch.WithPlanned(o.Console.StartProgress),
	)
	report, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}

	o.Console.Summary(report)
	if report.Failed > 0 {
		return errors.Errorf("%d of %d nodes failed", report.Failed, report.Total)
	}
	return nil
}
