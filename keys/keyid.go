package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"aibom.dev/ledger/bomerr"
)

// KeyID returns the self-certifying id of pub: URL-safe base64 (padded) of
// the raw 32 public key bytes.
func KeyID(pub ed25519.PublicKey) string {
	return base64.URLEncoding.EncodeToString(pub)
}

// PublicKeyFromKeyID recovers the public key named by id. Padded and
// unpadded forms are accepted.
func PublicKeyFromKeyID(id string) (ed25519.PublicKey, error) {
	raw, err := decodeBase64URL(id)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyID, "key_id is not URL-safe base64", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyID, fmt.Sprintf("key_id must decode to %d bytes, got %d", ed25519.PublicKeySize, len(raw)))
	}
	return ed25519.PublicKey(raw), nil
}

func decodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
