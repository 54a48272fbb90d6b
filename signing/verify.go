package signing

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/bomerr"
	"aibom.dev/ledger/hashing"
	"aibom.dev/ledger/keys"
)

// Verify reports whether the latest signature on doc is valid.
//
// When trusted is nil the key is recovered from the record's key_id, which
// proves integrity but not who signed. Every failure (no signatures,
// malformed record, wrong key, tampered content) yields false.
func Verify(doc bom.Document, trusted crypto.PublicKey) bool {
	return Check(doc, trusted) == nil
}

// VerifyWithKeyFile verifies against the public key stored at path. A key
// that cannot be loaded yields false.
func VerifyWithKeyFile(doc bom.Document, path string) bool {
	pub, err := LoadPublicKey(path)
	if err != nil {
		return false
	}
	return Verify(doc, pub)
}

// LoadPublicKey reads an Ed25519 or Dilithium3 public key file.
func LoadPublicKey(path string) (crypto.PublicKey, error) {
	if pk, err := keys.LoadDilithium3PublicKey(path); err == nil {
		return pk, nil
	}
	return keys.LoadPublicKey(path)
}

// Check is Verify with the reason for failure.
func Check(doc bom.Document, trusted crypto.PublicKey) error {
	sigs := doc.Signatures()
	if len(sigs) == 0 {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, "document is not signed")
	}
	rec, err := doc.SignatureAt(len(sigs) - 1)
	if err != nil {
		return err
	}
	digest, err := contentDigest(doc)
	if err != nil {
		return err
	}
	return checkRecord(digest, rec, trusted)
}

// Latest returns the authoritative (last) signature record.
func Latest(doc bom.Document) (bom.Signature, bool) {
	sigs := doc.Signatures()
	if len(sigs) == 0 {
		return bom.Signature{}, false
	}
	rec, err := doc.SignatureAt(len(sigs) - 1)
	if err != nil {
		return bom.Signature{}, false
	}
	return rec, true
}

// Result is the outcome for one signature record.
type Result struct {
	Index     int
	Signature bom.Signature
	// Valid: the signature verifies against the key named by its key_id.
	Valid bool
	// Trusted: Valid, and the key is one of the supplied trusted keys.
	Trusted bool
	Err     error
}

// VerifyAll checks every signature on doc against its embedded key_id and
// marks which signers are trusted.
func VerifyAll(doc bom.Document, trusted ...crypto.PublicKey) []Result {
	sigs := doc.Signatures()
	if len(sigs) == 0 {
		return nil
	}
	results := make([]Result, len(sigs))
	digest, digestErr := contentDigest(doc)
	for i := range sigs {
		r := Result{Index: i}
		rec, err := doc.SignatureAt(i)
		switch {
		case err != nil:
			r.Err = err
		case digestErr != nil:
			r.Signature, r.Err = rec, digestErr
		default:
			r.Signature = rec
			r.Err = checkRecord(digest, rec, nil)
			r.Valid = r.Err == nil
			if r.Valid {
				for _, k := range trusted {
					if KeyIDOf(k) == rec.KeyID {
						r.Trusted = true
						break
					}
				}
			}
		}
		results[i] = r
	}
	return results
}

func contentDigest(doc bom.Document) ([]byte, error) {
	sum, err := hashing.ContentHash(doc)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(sum)
}

func checkRecord(digest []byte, rec bom.Signature, trusted crypto.PublicKey) error {
	sig, err := decodeBase64(rec.Signature)
	if err != nil {
		return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValSignature, "signature is not base64", err)
	}
	switch rec.Algorithm {
	case AlgEd25519SHA256:
		pub, err := ed25519Key(rec.KeyID, trusted)
		if err != nil {
			return err
		}
		if len(sig) != ed25519.SignatureSize || !ed25519.Verify(pub, digest, sig) {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, "ed25519 signature does not verify")
		}
		return nil
	case AlgDilithium3SHA256:
		pk, err := dilithium3Key(rec.KeyID, trusted)
		if err != nil {
			return err
		}
		if len(sig) != mode3.SignatureSize || !mode3.Verify(pk, digest, sig) {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, "dilithium3 signature does not verify")
		}
		return nil
	default:
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, fmt.Sprintf("unsupported signature algorithm %q", rec.Algorithm))
	}
}

func ed25519Key(keyID string, trusted crypto.PublicKey) (ed25519.PublicKey, error) {
	switch k := trusted.(type) {
	case nil:
		return keys.PublicKeyFromKeyID(keyID)
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, "trusted ed25519 key has the wrong length")
		}
		return k, nil
	case *ed25519.PublicKey:
		if k == nil {
			return keys.PublicKeyFromKeyID(keyID)
		}
		return ed25519Key(keyID, *k)
	default:
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("trusted key %T does not match ed25519 signature", trusted))
	}
}

func dilithium3Key(keyID string, trusted crypto.PublicKey) (*mode3.PublicKey, error) {
	switch k := trusted.(type) {
	case nil:
		return keys.Dilithium3PublicKeyFromKeyID(keyID)
	case *mode3.PublicKey:
		if k == nil {
			return keys.Dilithium3PublicKeyFromKeyID(keyID)
		}
		return k, nil
	default:
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("trusted key %T does not match dilithium3 signature", trusted))
	}
}

// KeyIDOf returns the self-certifying id of a supported public key, or "".
func KeyIDOf(k crypto.PublicKey) string {
	switch t := k.(type) {
	case ed25519.PublicKey:
		if len(t) == ed25519.PublicKeySize {
			return keys.KeyID(t)
		}
	case *mode3.PublicKey:
		if t != nil {
			return keys.Dilithium3KeyID(t)
		}
	}
	return ""
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
