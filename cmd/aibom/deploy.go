package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aibom.dev/ledger/compliance"
	"aibom.dev/ledger/policy"
)

// bomCandidates are the file names deploy-check looks for, in order.
var bomCandidates = []string{"ai-bom.json", "bom.json"}

func findBOM(dir string) (string, bool) {
	for _, name := range bomCandidates {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

func newDeployCheckCmd(a *app) *cobra.Command {
	var (
		dir    string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "deploy-check",
		Short: "Refuse deployment of unsigned BOMs that contain models",
		Long: `Look for ai-bom.json, then bom.json, in --dir and apply the deployment gate.

By default only the presence of a signature is checked. With --strict (or
policy.mode: strict) the latest signature must also verify, against
policy.trusted_keys when configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, ok := findBOM(dir)
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), "No BOM file found")
				return exitWith(exitUsage)
			}
			doc, err := readDocument(path)
			if err != nil {
				return fail(err)
			}

			gate := policy.Gate{Mode: a.cfg.ComplianceMode()}
			if strict {
				gate.Mode = compliance.Strict
			}
			if gate.Mode == compliance.Strict {
				gate.TrustedKeys, err = policy.LoadTrustedKeys(a.cfg.Policy.TrustedKeys)
				if err != nil {
					return fail(err)
				}
			}

			d := gate.Evaluate(doc)
			a.log.Info().
				Str("bom", path).
				Str("mode", gate.Mode.String()).
				Bool("deployable", d.Deployable).
				Str("reason", d.Reason).
				Msg("deploy check")
			if !d.Deployable {
				fmt.Fprintln(cmd.ErrOrStderr(), capitalize(d.Reason))
				return exitWith(exitRefused)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deploy check passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory containing the BOM")
	cmd.Flags().BoolVar(&strict, "strict", false, "also require the latest signature to verify")
	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
