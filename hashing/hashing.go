// Package hashing computes content identities of BOM documents.
//
// The content hash is SHA-256 over the canonical encoding of the document
// with its signatures field removed, so signing never changes it.
package hashing

import (
	_ "crypto/sha256"

	"github.com/opencontainers/go-digest"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/canonical"
)

// ContentHash returns the lowercase hex SHA-256 of the canonical payload.
func ContentHash(doc bom.Document) (string, error) {
	d, err := ContentDigest(doc)
	if err != nil {
		return "", err
	}
	return d.Encoded(), nil
}

// ContentDigest returns the content hash as a "sha256:<hex>" digest.
func ContentDigest(doc bom.Document) (digest.Digest, error) {
	b, err := PayloadBytes(doc)
	if err != nil {
		return "", err
	}
	return digest.SHA256.FromBytes(b), nil
}

// PayloadBytes returns the canonical bytes the content hash covers.
func PayloadBytes(doc bom.Document) ([]byte, error) {
	return canonical.Encode(map[string]any(doc.Payload()))
}

// Sum returns the hex SHA-256 of the canonical encoding of v. Unlike
// ContentHash nothing is stripped.
func Sum(v any) (string, error) {
	b, err := canonical.Encode(v)
	if err != nil {
		return "", err
	}
	return digest.SHA256.FromBytes(b).Encoded(), nil
}
