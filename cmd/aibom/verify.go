package main

import (
	"crypto"
	"fmt"

	"github.com/spf13/cobra"

	"aibom.dev/ledger/signing"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		publicKey string
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "verify <bom.json>",
		Short: "Verify the latest signature of a BOM",
		Long: `Verify the latest signature of a BOM.

Without --public-key the key is recovered from the signature's key_id, which
proves the document is intact but not who signed it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return fail(err)
			}

			var trusted crypto.PublicKey
			if publicKey != "" {
				trusted, err = signing.LoadPublicKey(publicKey)
				if err != nil {
					a.log.Warn().Err(err).Str("path", publicKey).Msg("cannot load public key")
				}
			}

			w := cmd.OutOrStdout()
			if all {
				var keys []crypto.PublicKey
				if trusted != nil {
					keys = append(keys, trusted)
				}
				for _, r := range signing.VerifyAll(doc, keys...) {
					state := "ok"
					if !r.Valid {
						state = "FAILED"
					} else if trusted != nil && !r.Trusted {
						state = "ok (untrusted)"
					}
					fmt.Fprintf(w, "[%d] %s %s %s\n", r.Index, r.Signature.Algorithm, r.Signature.KeyID, state)
				}
			}

			// A key file that cannot be loaded never verifies.
			ok := false
			if publicKey == "" || trusted != nil {
				err := signing.Check(doc, trusted)
				if err != nil {
					a.log.Debug().Err(err).Msg("verification failed")
				}
				ok = err == nil
			}

			if !ok {
				fmt.Fprintln(w, "Verification FAILED")
				return exitWith(exitFailure)
			}
			fmt.Fprintln(w, "Verification OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "trusted public key file (SPKI PEM, ssh authorized key or Dilithium3 PEM)")
	cmd.Flags().BoolVar(&all, "all", false, "also list every signature and whether it verifies")
	return cmd
}
