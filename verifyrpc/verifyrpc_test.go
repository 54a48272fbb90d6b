package verifyrpc

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ed25519"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/compliance"
	"aibom.dev/ledger/hashing"
	"aibom.dev/ledger/policy"
	"aibom.dev/ledger/signing"
)

func keypair(seedByte byte) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed := bytes.Repeat([]byte{seedByte}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv
}

func modelDoc() bom.Document {
	return bom.Document{
		"name":    "demo",
		"version": "1",
		"components": []any{map[string]any{
			"type":        "model",
			"name":        "weights",
			"fingerprint": map[string]any{"algorithm": "sha256", "hash": strings.Repeat("ab", 32)},
		}},
	}
}

func startServer(t *testing.T, srv *Server, opts ...grpc.ServerOption) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer(opts...)
	RegisterLedgerServer(gs, srv)

	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewLedgerClient(cc), Timeout: 2 * time.Second}
}

func TestLedger_HashAndCID(t *testing.T) {
	client := startServer(t, &Server{Log: zerolog.Nop()})
	doc := modelDoc()

	got, err := client.Hash(doc)
	require.NoError(t, err)
	want, err := hashing.ContentHash(doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	id, err := client.CID(doc)
	require.NoError(t, err)
	wantCID, err := hashing.CIDString(doc)
	require.NoError(t, err)
	assert.Equal(t, wantCID, id)
}

func TestLedger_VerifyAndDeployable(t *testing.T) {
	client := startServer(t, &Server{Log: zerolog.Nop()})
	_, priv := keypair(7)

	doc := modelDoc()
	ok, err := client.Verify(doc)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = client.Deployable(doc)
	require.NoError(t, err)
	assert.False(t, ok)

	signed, err := signing.Sign(doc, priv)
	require.NoError(t, err)
	ok, err = client.Verify(signed)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.Deployable(signed)
	require.NoError(t, err)
	assert.True(t, ok)

	signed["version"] = "2"
	ok, err = client.Verify(signed)
	require.NoError(t, err)
	assert.False(t, ok)

	// Permissive gate only looks at presence.
	ok, err = client.Deployable(signed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_StrictGateWithTrustedKeys(t *testing.T) {
	trustedPub, _ := keypair(1)
	_, otherPriv := keypair(2)
	client := startServer(t, &Server{
		Log:  zerolog.Nop(),
		Gate: policy.Gate{Mode: compliance.Strict, TrustedKeys: []crypto.PublicKey{trustedPub}},
	})

	signed, err := signing.Sign(modelDoc(), otherPriv)
	require.NoError(t, err)

	ok, err := client.Verify(signed)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = client.Deployable(signed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_InvalidDocument(t *testing.T) {
	client := startServer(t, &Server{Log: zerolog.Nop()})

	ctx, cancel := client.ctx()
	defer cancel()
	_, err := client.client.Verify(ctx, wrapperspb.Bytes([]byte("[1,2]")))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.True(t, errors.Is(mapRPC(err), ErrInvalidDocument))

	_, err = client.client.Hash(ctx, wrapperspb.Bytes([]byte(`{"n":1e400}`)))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

type fixedHash struct {
	UnimplementedLedgerServer
}

func (fixedHash) Hash(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(strings.Repeat("0", 64)), nil
}

func TestClient_DetectsHashMismatch(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterLedgerServer(gs, fixedHash{})
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	client, err := Dial("passthrough:///bufnet", DialOptions{
		Timeout: 2 * time.Second,
		Extra: []grpc.DialOption{grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) {
			return lis.Dial()
		})},
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Hash(modelDoc())
	assert.ErrorIs(t, err, ErrHashMismatch)

	_, err = client.Verify(modelDoc())
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	client := startServer(t, &Server{Log: zerolog.Nop()}, grpc.UnaryInterceptor(LoggingInterceptor(log)))

	_, err := client.Verify(modelDoc())
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "/"+ServiceName+"/Verify")
	assert.Contains(t, out, `"code":"OK"`)
	assert.NotContains(t, out, "weights")
}

func TestMapRPC(t *testing.T) {
	assert.Nil(t, mapRPC(nil))
	plain := errors.New("plain")
	assert.Equal(t, plain, mapRPC(plain))
	assert.ErrorIs(t, mapRPC(status.Error(codes.Unavailable, "down")), ErrUnavailable)
	assert.ErrorIs(t, mapRPC(status.Error(codes.DeadlineExceeded, "slow")), ErrUnavailable)
	other := status.Error(codes.Internal, "boom")
	assert.Equal(t, other, mapRPC(other))
}
