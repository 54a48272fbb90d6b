package verifyrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrInvalidDocument = errors.New("verifyrpc: invalid document")
	ErrHashMismatch    = errors.New("verifyrpc: content hash mismatch")
	ErrUnavailable     = errors.New("verifyrpc: service unavailable")
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return errors.Join(ErrInvalidDocument, errors.New(st.Message()))
	case codes.Unavailable, codes.DeadlineExceeded:
		return errors.Join(ErrUnavailable, err)
	default:
		return err
	}
}
