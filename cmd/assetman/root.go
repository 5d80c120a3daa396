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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"assetman/cmd/assetman/opts"
	"assetman/pkg/catalog"
	"assetman/pkg/config"
	"assetman/pkg/log"
)

var (
	// Flags
	configFile  string
	debug       bool
	maxParallel int
)

// addRootFlags wires the shared flags and deferred initialization into the
// root command and returns the shared options the subcommands close over.
// Config and credentials load in PersistentPreRunE, after flag parsing.
func addRootFlags(ctx context.Context, cmd *cobra.Command) *opts.RootOpts {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: discover .assetman.yaml/.hcl)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().IntVarP(&maxParallel, "max-parallel", "p", 0, "override max concurrent remote calls")

	o := &opts.RootOpts{
		Console: log.New(os.Stdout, zerolog.InfoLevel),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		logger := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
		})).Level(level).With().Timestamp().Logger()
		cmd.SetContext(logger.WithContext(cmd.Context()))

		var cfg *config.Config
		var err error
		if configFile != "" {
			cfg, err = config.Load(cmd.Context(), configFile)
		} else {
			cfg, err = config.Discover(cmd.Context(), ".")
		}
		if err != nil {
			return errors.Errorf("loading config: %w", err)
		}
		if maxParallel > 0 {
			cfg.MaxParallel = maxParallel
		}
		o.Config = cfg

		o.NewClient = func(ctx context.Context) (catalog.Client, error) {
			creds, err := config.LoadCredentials()
			if err != nil {
				return nil, err
			}
			return catalog.NewRESTClient(ctx, cfg.BaseURL, creds.TokenSource(),
				catalog.WithCallTimeout(cfg.CallTimeout()))
		}
		return nil
	}

	return o
}
