package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"aibom.dev/ledger/bomerr"
	"aibom.dev/ledger/compliance"
	"aibom.dev/ledger/hashing"
)

func newHashCmd(a *app) *cobra.Command {
	var asCID bool
	cmd := &cobra.Command{
		Use:   "hash <bom.json>",
		Short: "Print the content hash of a BOM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return fail(err)
			}
			var sum string
			if asCID {
				sum, err = hashing.CIDString(doc)
			} else {
				sum, err = hashing.ContentHash(doc)
			}
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asCID, "cid", false, "print a CIDv1 (raw, sha2-256) instead of hex")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bom.json>",
		Short: "Check a BOM against the document schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return fail(err)
			}
			if err := doc.Validate(); err != nil {
				if rule := bomerr.RuleID(err); rule != "" {
					a.log.Debug().Str("rule", rule).Msg("validation failed")
				}
				return failf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "BOM is valid")
			return nil
		},
	}
}

func newComplianceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compliance <bom.json>",
		Short: "Print a compliance report mapping BOM evidence to frameworks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return fail(err)
			}
			report := compliance.BuildReport(doc)
			a.log.Debug().Int("satisfied", report.Summary.Satisfied).Int("total", report.Summary.Total).Msg("compliance report")
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fail(err)
			}
			return nil
		},
	}
}
