package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"aibom.dev/ledger/keys"
	"aibom.dev/ledger/signing"
)

func newKeygenCmd(a *app) *cobra.Command {
	var (
		outdir  string
		seedHex string
		alg     string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outdir == "" {
				outdir = a.cfg.KeysDir
			}
			ks, err := keys.CreateKeyStore(outdir)
			if err != nil {
				return fail(err)
			}

			var privPath, pubPath, keyID string
			switch alg {
			case "ed25519":
				var kp keys.KeyPair
				if seedHex != "" {
					seed, err := keys.ParseSeedHex(seedHex)
					if err != nil {
						return fail(err)
					}
					kp, err = ks.GenerateFromSeed(seed)
					if err != nil {
						return fail(err)
					}
				} else {
					kp, err = ks.Generate()
					if err != nil {
						return fail(err)
					}
				}
				privPath, pubPath, keyID = kp.PrivatePath, kp.PublicPath, kp.KeyID
			case "dilithium3":
				if seedHex != "" {
					return &exitError{code: exitUsage, err: fmt.Errorf("--seed-hex is only supported for ed25519")}
				}
				kp, err := ks.GenerateDilithium3(rand.Reader)
				if err != nil {
					return fail(err)
				}
				privPath, pubPath, keyID = kp.PrivatePath, kp.PublicPath, kp.KeyID
			default:
				return &exitError{code: exitUsage, err: fmt.Errorf("unknown --alg %q (want ed25519 or dilithium3)", alg)}
			}

			a.log.Info().Str("alg", alg).Str("dir", outdir).Msg("generated key pair")
			fmt.Fprintf(cmd.OutOrStdout(), "Generated keypair: %s (private), %s (public). key_id=%s\n", privPath, pubPath, keyID)
			return nil
		},
	}
	cmd.Flags().StringVar(&outdir, "outdir", "", "key directory (default from config keys_dir)")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "32-byte ed25519 seed as 64 hex chars")
	cmd.Flags().StringVar(&alg, "alg", "ed25519", "key algorithm: ed25519 or dilithium3")
	return cmd
}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Inspect stored keys",
	}

	var outdir string
	list := &cobra.Command{
		Use:   "list",
		Short: "List key pairs in the key directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outdir == "" {
				outdir = a.cfg.KeysDir
			}
			ks, err := keys.CreateKeyStore(outdir)
			if err != nil {
				return fail(err)
			}
			entries, err := ks.ListKeys()
			if err != nil {
				return fail(err)
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				keyID := "-"
				if e.HasPublic {
					_, pubPath := ks.Paths(e.ID)
					if pub, err := signing.LoadPublicKey(pubPath); err == nil {
						keyID = signing.KeyIDOf(pub)
					}
				}
				fmt.Fprintf(w, "%s\tprivate=%t\tpublic=%t\tkey_id=%s\n", e.ID, e.HasPrivate, e.HasPublic, keyID)
			}
			return nil
		},
	}
	list.Flags().StringVar(&outdir, "outdir", "", "key directory (default from config keys_dir)")

	cmd.AddCommand(list)
	return cmd
}
