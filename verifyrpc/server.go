// Package verifyrpc exposes hashing, verification and the deployment gate
// over gRPC, so services that cannot link this module can still check BOMs.
package verifyrpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/bomerr"
	"aibom.dev/ledger/hashing"
	"aibom.dev/ledger/policy"
)

// Server implements LedgerServer. It holds no per-call state.
type Server struct {
	UnimplementedLedgerServer

	// Gate decides Deployable; its TrustedKeys also restrict Verify.
	Gate policy.Gate
	Log  zerolog.Logger
}

func (s *Server) Hash(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	doc, err := decode(in)
	if err != nil {
		return nil, err
	}
	sum, err := hashing.ContentHash(doc)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(sum), nil
}

func (s *Server) CID(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	doc, err := decode(in)
	if err != nil {
		return nil, err
	}
	id, err := hashing.CIDString(doc)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(id), nil
}

func (s *Server) Verify(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	doc, err := decode(in)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(s.Gate.Verify(doc)), nil
}

func (s *Server) Deployable(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	doc, err := decode(in)
	if err != nil {
		return nil, err
	}
	d := s.Gate.Evaluate(doc)
	s.Log.Debug().Bool("deployable", d.Deployable).Str("reason", d.Reason).Msg("gate evaluated")
	return wrapperspb.Bool(d.Deployable), nil
}

func decode(in *wrapperspb.BytesValue) (bom.Document, error) {
	doc, err := bom.Decode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return doc, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case bomerr.IsKind(err, bomerr.KindEncoding), bomerr.IsKind(err, bomerr.KindValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs every unary call with its method, status code and
// duration. Request payloads are never logged.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		ev := log.Info()
		if err != nil {
			ev = log.Warn()
		}
		ev.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("rpc")
		return resp, err
	}
}
