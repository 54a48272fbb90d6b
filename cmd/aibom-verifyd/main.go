// Command aibom-verifyd serves BOM hashing, verification and the deployment
// gate over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"aibom.dev/ledger/config"
	"aibom.dev/ledger/internal/logging"
	"aibom.dev/ledger/policy"
	"aibom.dev/ledger/verifyrpc"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stderr))
}

// runMain serves until SIGINT or SIGTERM. Signal handling is released before
// it returns.
func runMain(args []string, errOut io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, errOut)
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("aibom-verifyd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "config file (default .ai-bom/config.yaml when present)")
	listen := fs.String("listen", "", "listen address (overrides rpc.listen)")
	strict := fs.Bool("strict", false, "require the latest signature to verify (overrides policy.mode)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *listen != "" {
		cfg.RPC.Listen = *listen
	}
	if *strict {
		cfg.Policy.Mode = "strict"
	}

	log, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		Console:    errOut,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer closer.Close()

	gs, err := newServer(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("cannot build server")
		return 1
	}

	lis, err := net.Listen("tcp", cfg.RPC.Listen)
	if err != nil {
		log.Error().Err(err).Str("listen", cfg.RPC.Listen).Msg("cannot listen")
		return 1
	}

	log.Info().
		Str("listen", lis.Addr().String()).
		Str("mode", cfg.ComplianceMode().String()).
		Int("trusted_keys", len(cfg.Policy.TrustedKeys)).
		Msg("aibom-verifyd listening")
	if err := serve(ctx, gs, lis); err != nil {
		log.Error().Err(err).Msg("serve")
		return 1
	}
	log.Info().Msg("aibom-verifyd stopped")
	return 0
}

func newServer(cfg *config.Config, log zerolog.Logger) (*grpc.Server, error) {
	trusted, err := policy.LoadTrustedKeys(cfg.Policy.TrustedKeys)
	if err != nil {
		return nil, err
	}

	opts := []grpc.ServerOption{grpc.UnaryInterceptor(verifyrpc.LoggingInterceptor(log))}
	if cfg.RPC.MaxMsgBytes > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(cfg.RPC.MaxMsgBytes),
			grpc.MaxSendMsgSize(cfg.RPC.MaxMsgBytes),
		)
	}
	if cfg.RPC.Timeout > 0 {
		opts = append(opts, grpc.ConnectionTimeout(cfg.RPC.Timeout))
	}

	gs := grpc.NewServer(opts...)
	verifyrpc.RegisterLedgerServer(gs, &verifyrpc.Server{
		Gate: policy.Gate{Mode: cfg.ComplianceMode(), TrustedKeys: trusted},
		Log:  log,
	})
	return gs, nil
}

// serve runs gs on lis until ctx is done, then drains in-flight calls.
func serve(ctx context.Context, gs *grpc.Server, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
