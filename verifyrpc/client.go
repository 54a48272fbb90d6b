package verifyrpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/hashing"
)

// Client talks to a Ledger gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Hash asks the service for the content hash of doc and checks it against
// the locally computed one.
func (c *Client) Hash(doc bom.Document) (string, error) {
	payload, expected, err := encodeWithHash(doc)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Hash(ctx, wrapperspb.Bytes(payload))
	if err != nil {
		return "", mapRPC(err)
	}
	if reply.GetValue() != expected {
		return "", ErrHashMismatch
	}
	return reply.GetValue(), nil
}

// CID asks the service for the content CID of doc and checks it against the
// locally computed one.
func (c *Client) CID(doc bom.Document) (string, error) {
	payload, err := doc.Marshal()
	if err != nil {
		return "", err
	}
	expected, err := hashing.CIDString(doc)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.CID(ctx, wrapperspb.Bytes(payload))
	if err != nil {
		return "", mapRPC(err)
	}
	if reply.GetValue() != expected {
		return "", ErrHashMismatch
	}
	return reply.GetValue(), nil
}

// Verify reports whether the service accepts the latest signature on doc.
func (c *Client) Verify(doc bom.Document) (bool, error) {
	payload, err := doc.Marshal()
	if err != nil {
		return false, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Verify(ctx, wrapperspb.Bytes(payload))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

// Deployable reports the service's gate decision for doc.
func (c *Client) Deployable(doc bom.Document) (bool, error) {
	payload, err := doc.Marshal()
	if err != nil {
		return false, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Deployable(ctx, wrapperspb.Bytes(payload))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func encodeWithHash(doc bom.Document) ([]byte, string, error) {
	payload, err := doc.Marshal()
	if err != nil {
		return nil, "", err
	}
	sum, err := hashing.ContentHash(doc)
	if err != nil {
		return nil, "", err
	}
	return payload, sum, nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
