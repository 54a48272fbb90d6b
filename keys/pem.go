package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"aibom.dev/ledger/bomerr"
)

// PEM block types.
const (
	PEMPrivateKey        = "PRIVATE KEY"
	PEMPublicKey         = "PUBLIC KEY"
	PEMOpenSSHPrivateKey = "OPENSSH PRIVATE KEY"
)

// MarshalPrivateKeyPEM encodes priv as an unencrypted PKCS#8 PEM block.
func MarshalPrivateKeyPEM(priv ed25519.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyType, "cannot encode private key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: PEMPrivateKey, Bytes: der}), nil
}

// MarshalPublicKeyPEM encodes pub as a SubjectPublicKeyInfo PEM block.
func MarshalPublicKeyPEM(pub ed25519.PublicKey) ([]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub)))
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyType, "cannot encode public key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: PEMPublicKey, Bytes: der}), nil
}

// ParsePrivateKeyPEM returns the Ed25519 key in data. PKCS#8 and unencrypted
// OpenSSH private keys are accepted.
func ParsePrivateKeyPEM(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "no PEM block found")
	}
	switch block.Type {
	case PEMPrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "malformed PKCS#8 private key", err)
		}
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("private key is %T, not ed25519", key))
		}
		return priv, nil
	case PEMOpenSSHPrivateKey:
		key, err := ssh.ParseRawPrivateKey(data)
		if err != nil {
			return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "malformed OpenSSH private key", err)
		}
		switch k := key.(type) {
		case *ed25519.PrivateKey:
			return *k, nil
		case ed25519.PrivateKey:
			return k, nil
		default:
			return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("private key is %T, not ed25519", key))
		}
	default:
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("unexpected PEM block %q", block.Type))
	}
}

// ParsePublicKey returns the Ed25519 key in data: an SPKI PEM block or an
// OpenSSH authorized_keys line.
func ParsePublicKey(data []byte) (ed25519.PublicKey, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("ssh-")) {
		return parseAuthorizedKey(trimmed)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "no PEM block found")
	}
	if block.Type != PEMPublicKey {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("unexpected PEM block %q", block.Type))
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "malformed public key", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("public key is %T, not ed25519", key))
	}
	return pub, nil
}

// LoadPrivateKey reads an Ed25519 private key file.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKeyPEM(data)
}

// LoadPublicKey reads an Ed25519 public key file.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePublicKey(data)
}

// PEMType returns the type of the first PEM block in data, or "".
func PEMType(data []byte) string {
	block, _ := pem.Decode(data)
	if block == nil {
		return ""
	}
	return block.Type
}
