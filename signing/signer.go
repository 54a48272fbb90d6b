// Package signing appends and checks provenance signatures on BOM documents.
//
// A signature covers the raw 32-byte SHA-256 content hash of the document
// without its signatures field. Signing appends a record and never touches
// earlier ones, so a document can carry signatures from several parties.
package signing

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/bomerr"
	"aibom.dev/ledger/hashing"
	"aibom.dev/ledger/keys"
)

// Signature algorithm identifiers written to signature records.
const (
	AlgEd25519SHA256    = "ed25519-sha256"
	AlgDilithium3SHA256 = "dilithium3-sha256"
)

// Signer produces signatures over a content digest.
type Signer interface {
	Algorithm() string
	KeyID() string
	SignDigest(digest []byte) ([]byte, error)
}

// Ed25519Signer signs with an Ed25519 private key.
type Ed25519Signer struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewEd25519Signer checks that priv is a well-formed key whose public half
// matches its seed.
func NewEd25519Signer(priv ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, bomerr.New(bomerr.KindSigning, bomerr.RuleSignKey, fmt.Sprintf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv)))
	}
	derived := ed25519.NewKeyFromSeed(priv.Seed())
	if !bytes.Equal(derived[ed25519.SeedSize:], priv[ed25519.SeedSize:]) {
		return nil, bomerr.New(bomerr.KindSigning, bomerr.RuleSignKey, "ed25519 private key public half does not match its seed")
	}
	return &Ed25519Signer{key: priv, pub: derived.Public().(ed25519.PublicKey)}, nil
}

func (s *Ed25519Signer) Algorithm() string { return AlgEd25519SHA256 }

func (s *Ed25519Signer) KeyID() string { return keys.KeyID(s.pub) }

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey { return s.pub }

func (s *Ed25519Signer) SignDigest(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.key, digest), nil
}

// Dilithium3Signer signs with a Dilithium3 (mode3) private key.
type Dilithium3Signer struct {
	key *mode3.PrivateKey
	pub *mode3.PublicKey
}

func NewDilithium3Signer(sk *mode3.PrivateKey) (*Dilithium3Signer, error) {
	if sk == nil {
		return nil, bomerr.New(bomerr.KindSigning, bomerr.RuleSignKey, "missing dilithium3 private key")
	}
	pub, ok := sk.Public().(*mode3.PublicKey)
	if !ok {
		return nil, bomerr.New(bomerr.KindSigning, bomerr.RuleSignKey, "dilithium3 private key has no public half")
	}
	return &Dilithium3Signer{key: sk, pub: pub}, nil
}

func (s *Dilithium3Signer) Algorithm() string { return AlgDilithium3SHA256 }

func (s *Dilithium3Signer) KeyID() string { return keys.Dilithium3KeyID(s.pub) }

func (s *Dilithium3Signer) SignDigest(digest []byte) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.key, digest, sig)
	return sig, nil
}

// LoadSigner reads a private key file and returns the matching signer. The
// scheme is chosen by the PEM block type.
func LoadSigner(path string) (Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if keys.PEMType(data) == keys.PEMDilithium3PrivateKey {
		sk, err := keys.ParseDilithium3PrivateKeyPEM(data)
		if err != nil {
			return nil, err
		}
		return NewDilithium3Signer(sk)
	}
	priv, err := keys.ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, err
	}
	return NewEd25519Signer(priv)
}

type options struct {
	now func() time.Time
}

// Option configures SignWith.
type Option func(*options)

// WithTime fixes the signed_at timestamp.
func WithTime(t time.Time) Option {
	return func(o *options) { o.now = func() time.Time { return t } }
}

// Sign appends an ed25519-sha256 signature by priv and returns the new
// document. doc is not modified.
func Sign(doc bom.Document, priv ed25519.PrivateKey) (bom.Document, error) {
	s, err := NewEd25519Signer(priv)
	if err != nil {
		return nil, err
	}
	return SignWith(doc, s)
}

// SignWith appends a signature produced by s and returns the new document.
func SignWith(doc bom.Document, s Signer, opts ...Option) (bom.Document, error) {
	if s == nil {
		return nil, bomerr.New(bomerr.KindSigning, bomerr.RuleSignKey, "missing signer")
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	sum, err := hashing.ContentHash(doc)
	if err != nil {
		return nil, err
	}
	digest, err := hex.DecodeString(sum)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindSigning, bomerr.RuleSignDocument, "content hash is not hex", err)
	}
	raw, err := s.SignDigest(digest)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindSigning, bomerr.RuleSignKey, "signing failed", err)
	}

	rec := bom.Signature{
		KeyID:     s.KeyID(),
		Algorithm: s.Algorithm(),
		Signature: base64.StdEncoding.EncodeToString(raw),
		SignedAt:  o.now().UTC().Format(time.RFC3339Nano),
	}

	out := doc.Clone()
	if out == nil {
		out = bom.Document{}
	}
	existing := out.Signatures()
	if raw := out[bom.FieldSignatures]; raw != nil && existing == nil {
		return nil, bomerr.New(bomerr.KindSigning, bomerr.RuleSignDocument, "signatures field is not a list")
	}
	sigs := make([]any, 0, len(existing)+1)
	sigs = append(sigs, existing...)
	sigs = append(sigs, rec.Record())
	out[bom.FieldSignatures] = sigs
	return out, nil
}
