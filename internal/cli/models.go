// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/formchat/internal/api"
	"github.com/jeranaias/formchat/internal/logging"
)

func newModelsCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the backend offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := bootstrap(opts, logging.ModeConsole)
			if err != nil {
				return err
			}
			defer closer.Close()

			models, err := newAPIClient(cfg).ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(api.ModelList{Data: models})
			}

			for _, m := range models {
				marker := "  "
				if m.ID == cfg.Client.DefaultModel {
					marker = "* "
				}
				fmt.Fprintf(out, "%s%s\t%s\n", marker, m.ID, m.Owner)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw listing as JSON")
	return cmd
}
