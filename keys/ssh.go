package keys

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"aibom.dev/ledger/bomerr"
)

// SSHFingerprint returns the OpenSSH SHA256 fingerprint of pub, for matching
// keys published out of band (e.g. a forge's signing keys).
func SSHFingerprint(pub ed25519.PublicKey) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyType, "cannot convert public key", err)
	}
	return ssh.FingerprintSHA256(sshPub), nil
}

// AuthorizedKey renders pub as a single authorized_keys line.
func AuthorizedKey(pub ed25519.PublicKey) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyType, "cannot convert public key", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))), nil
}

func parseAuthorizedKey(line []byte) (ed25519.PublicKey, error) {
	sshPub, _, _, _, err := ssh.ParseAuthorizedKey(line)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeyPEM, "malformed authorized_keys line", err)
	}
	if sshPub.Type() != ssh.KeyAlgoED25519 {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("ssh key is %s, not ed25519", sshPub.Type()))
	}
	cpk, ok := sshPub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, "ssh key does not expose its crypto key")
	}
	pub, ok := cpk.CryptoPublicKey().(ed25519.PublicKey)
	if !ok {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, "ssh key is not ed25519")
	}
	return pub, nil
}
