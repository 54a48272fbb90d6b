package keys

import (
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/google/uuid"

	"aibom.dev/ledger/bomerr"
)

// PEM block types for Dilithium3 keys.
const (
	PEMDilithium3PrivateKey = "DILITHIUM3 PRIVATE KEY"
	PEMDilithium3PublicKey  = "DILITHIUM3 PUBLIC KEY"
)

// Dilithium3KeyPair describes a generated Dilithium3 pair on disk.
type Dilithium3KeyPair struct {
	ID          string
	KeyID       string
	PrivatePath string
	PublicPath  string
	PublicKey   *mode3.PublicKey
}

// GenerateDilithium3 writes a fresh Dilithium3 pair under a new UUID.
func (ks *KeyStore) GenerateDilithium3(rand io.Reader) (Dilithium3KeyPair, error) {
	pk, sk, err := mode3.GenerateKey(rand)
	if err != nil {
		return Dilithium3KeyPair{}, err
	}
	id := uuid.NewString()
	privPath, pubPath := ks.Paths(id)

	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return Dilithium3KeyPair{}, err
	}
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return Dilithium3KeyPair{}, err
	}
	if err := writeFile(privPath, pem.EncodeToMemory(&pem.Block{Type: PEMDilithium3PrivateKey, Bytes: skBytes}), 0o600, false); err != nil {
		return Dilithium3KeyPair{}, err
	}
	if err := writeFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: PEMDilithium3PublicKey, Bytes: pkBytes}), 0o644, false); err != nil {
		return Dilithium3KeyPair{}, err
	}
	return Dilithium3KeyPair{
		ID:          id,
		KeyID:       Dilithium3KeyID(pk),
		PrivatePath: privPath,
		PublicPath:  pubPath,
		PublicKey:   pk,
	}, nil
}

// ParseDilithium3PrivateKeyPEM decodes a "DILITHIUM3 PRIVATE KEY" block.
func ParseDilithium3PrivateKeyPEM(data []byte) (*mode3.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "no PEM block found")
	}
	if block.Type != PEMDilithium3PrivateKey {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("unexpected PEM block %q", block.Type))
	}
	var sk mode3.PrivateKey
	if err := sk.UnmarshalBinary(block.Bytes); err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "malformed dilithium3 private key", err)
	}
	return &sk, nil
}

// ParseDilithium3PublicKeyPEM decodes a "DILITHIUM3 PUBLIC KEY" block.
func ParseDilithium3PublicKeyPEM(data []byte) (*mode3.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "no PEM block found")
	}
	if block.Type != PEMDilithium3PublicKey {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("unexpected PEM block %q", block.Type))
	}
	return unmarshalDilithium3PublicKey(block.Bytes)
}

// LoadDilithium3PublicKey reads a Dilithium3 public key file.
func LoadDilithium3PublicKey(path string) (*mode3.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDilithium3PublicKeyPEM(data)
}

// Dilithium3KeyID is the self-certifying id of a Dilithium3 key, built the
// same way as KeyID.
func Dilithium3KeyID(pk *mode3.PublicKey) string {
	raw, err := pk.MarshalBinary()
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// Dilithium3PublicKeyFromKeyID recovers the Dilithium3 key named by id.
func Dilithium3PublicKeyFromKeyID(id string) (*mode3.PublicKey, error) {
	raw, err := decodeBase64URL(id)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyID, "key_id is not URL-safe base64", err)
	}
	return unmarshalDilithium3PublicKey(raw)
}

func unmarshalDilithium3PublicKey(raw []byte) (*mode3.PublicKey, error) {
	if len(raw) != mode3.PublicKeySize {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyID, fmt.Sprintf("dilithium3 public key must be %d bytes, got %d", mode3.PublicKeySize, len(raw)))
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "malformed dilithium3 public key", err)
	}
	return &pk, nil
}
