package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/keys"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		dir   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .ai-bom/keys and a sample ai-bom.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(filepath.Join(dir, keys.DefaultDirectory), 0o700); err != nil {
				return fail(err)
			}
			path := filepath.Join(dir, "ai-bom.json")
			if _, err := os.Stat(path); err == nil && !force {
				return failf("%s already exists (use --force to replace)", path)
			}

			createdBy := os.Getenv("USER")
			if createdBy == "" {
				createdBy = "cli-user"
			}
			doc, err := bom.New(bom.Header{
				ProjectID:   uuid.NewString(),
				Name:        "sample-model",
				Version:     "0.1.0",
				Description: "Sample AI-BOM",
				CreatedBy:   createdBy,
			}, nil, nil)
			if err != nil {
				return fail(err)
			}
			if err := writeDocument(path, doc); err != nil {
				return fail(err)
			}
			a.log.Debug().Str("path", path).Msg("wrote sample bom")
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ai-bom in %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing ai-bom.json")
	return cmd
}
