package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/signing"
)

func newSignCmd(a *app) *cobra.Command {
	var keyPath string
	cmd := &cobra.Command{
		Use:   "sign <bom.json>",
		Short: "Append a signature to a BOM file in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, err := readDocument(path)
			if err != nil {
				return fail(err)
			}
			if err := doc.Validate(); err != nil {
				return failf("%s: %w", path, err)
			}
			signer, err := signing.LoadSigner(keyPath)
			if err != nil {
				return failf("load key: %w", err)
			}
			signed, err := signing.SignWith(doc, signer)
			if err != nil {
				return fail(err)
			}
			if err := writeDocument(path, signed); err != nil {
				return fail(err)
			}
			a.log.Info().
				Str("bom", signed.String(bom.FieldName)).
				Str("alg", signer.Algorithm()).
				Str("key_id", signer.KeyID()).
				Int("signatures", len(signed.Signatures())).
				Msg("signed bom")
			fmt.Fprintln(cmd.OutOrStdout(), "Signed BOM and updated file")
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "private key file (PKCS#8, OpenSSH or Dilithium3 PEM)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
