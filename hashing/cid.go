package hashing

import (
	"encoding/hex"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"aibom.dev/ledger/bom"
)

// ContentCID returns a CIDv1 (raw codec, sha2-256 multihash) over the
// canonical payload. Its multihash digest equals ContentHash.
func ContentCID(doc bom.Document) (cid.Cid, error) {
	b, err := PayloadBytes(doc)
	if err != nil {
		return cid.Undef, err
	}
	sum, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// CIDString is ContentCID in its default string form.
func CIDString(doc bom.Document) (string, error) {
	id, err := ContentCID(doc)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// HashFromCID extracts the hex sha2-256 digest from a CID produced by
// ContentCID.
func HashFromCID(s string) (string, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return "", err
	}
	dm, err := multihash.Decode(id.Hash())
	if err != nil {
		return "", err
	}
	if dm.Code != multihash.SHA2_256 {
		return "", multihash.ErrUnknownCode
	}
	return hex.EncodeToString(dm.Digest), nil
}
