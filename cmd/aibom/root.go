package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aibom.dev/ledger/config"
	"aibom.dev/ledger/internal/logging"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string

	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		Console:    a.errOut,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return fail(fmt.Errorf("logging: %w", err))
	}
	a.cfg = cfg
	a.log = log
	a.closer = closer
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aibom",
		Short: "AI bill of materials integrity and provenance",
		Long: `aibom builds, signs and verifies AI bills of materials.

Signatures are Ed25519 over the SHA-256 of the canonical document with its
signatures removed. Keys live under .ai-bom/keys as PEM files named by UUID.

Exit codes: 0 ok, 1 failure, 2 usage or missing BOM, 3 deploy gate refusal.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default .ai-bom/config.yaml when present)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newInitCmd(a),
		newKeygenCmd(a),
		newKeyCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newHashCmd(a),
		newValidateCmd(a),
		newDeployCheckCmd(a),
		newComplianceCmd(a),
	)
	return cmd
}
