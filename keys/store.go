package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"aibom.dev/ledger/bomerr"
)

// DefaultDirectory is where keys live relative to a project root.
const DefaultDirectory = ".ai-bom/keys"

const (
	privateSuffix = ".key"
	publicSuffix  = ".pub"
)

// KeyStore is a local directory of generated key pairs.
type KeyStore struct {
	Directory string
}

// KeyPair describes a generated pair on disk.
type KeyPair struct {
	ID          string
	KeyID       string
	PrivatePath string
	PublicPath  string
	PublicKey   ed25519.PublicKey
}

// KeyEntry is one pair found by ListKeys.
type KeyEntry struct {
	ID         string
	HasPrivate bool
	HasPublic  bool
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		directory = DefaultDirectory
	}
	return &KeyStore{Directory: directory}, nil
}

// Paths returns the private and public file paths for a pair id.
func (ks *KeyStore) Paths(id string) (privatePath, publicPath string) {
	return filepath.Join(ks.Directory, id+privateSuffix), filepath.Join(ks.Directory, id+publicSuffix)
}

// Generate creates a fresh Ed25519 pair and writes it under a new UUID.
func (ks *KeyStore) Generate() (KeyPair, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return KeyPair{}, err
	}
	return ks.GenerateFromSeed(seed)
}

// GenerateFromSeed writes the pair derived from seed under a new UUID.
func (ks *KeyStore) GenerateFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeySeed, fmt.Sprintf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	id := uuid.NewString()
	privPath, pubPath := ks.Paths(id)
	if err := WriteKeyPair(privPath, pubPath, priv, false); err != nil {
		return KeyPair{}, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	return KeyPair{
		ID:          id,
		KeyID:       KeyID(pub),
		PrivatePath: privPath,
		PublicPath:  pubPath,
		PublicKey:   pub,
	}, nil
}

// WriteKeyPair writes priv as PKCS#8 PEM (mode 0600) and its public half as
// SPKI PEM (mode 0644). Existing files are refused unless overwrite is set.
func WriteKeyPair(privatePath, publicPath string, priv ed25519.PrivateKey, overwrite bool) error {
	if len(priv) != ed25519.PrivateKeySize {
		return bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeyType, fmt.Sprintf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv)))
	}
	privPEM, err := MarshalPrivateKeyPEM(priv)
	if err != nil {
		return err
	}
	pubPEM, err := MarshalPublicKeyPEM(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}
	if err := writeFile(privatePath, privPEM, 0o600, overwrite); err != nil {
		return err
	}
	return writeFile(publicPath, pubPEM, 0o644, overwrite)
}

func writeFile(filePath string, data []byte, perm os.FileMode, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, perm)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Close()
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindKeyFormat, bomerr.RuleKeySeed, "seed is not hex", err)
	}
	if len(data) != ed25519.SeedSize {
		return nil, bomerr.New(bomerr.KindKeyFormat, bomerr.RuleKeySeed, fmt.Sprintf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data)))
	}
	return data, nil
}

// ListKeys returns the pairs in the store sorted by id. Files whose stem is
// not a UUID are ignored.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	found := make(map[string]*KeyEntry)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != privateSuffix && ext != publicSuffix {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		e, ok := found[id]
		if !ok {
			e = &KeyEntry{ID: id}
			found[id] = e
		}
		if ext == privateSuffix {
			e.HasPrivate = true
		} else {
			e.HasPublic = true
		}
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]KeyEntry, 0, len(ids))
	for _, id := range ids {
		result = append(result, *found[id])
	}
	return result, nil
}
