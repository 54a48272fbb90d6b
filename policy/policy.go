// Package policy decides whether a BOM may be deployed.
package policy

import (
	"crypto"
	"fmt"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/compliance"
	"aibom.dev/ledger/signing"
)

// IsDeployable reports whether doc passes the deployment gate: a document with
// at least one model component needs a non-empty signatures list, anything
// else passes.
//
// Only signature presence is checked. A well-formed but cryptographically
// invalid signature passes; use a Strict Gate to also verify it.
func IsDeployable(doc bom.Document) bool {
	if !doc.HasComponentType(bom.ComponentModel) {
		return true
	}
	return doc.HasSignatures()
}

// Gate evaluates documents under a compliance mode.
type Gate struct {
	Mode compliance.ComplianceMode
	// TrustedKeys restricts Strict mode to these signers. Empty means the
	// key recovered from the signature's key_id is accepted.
	TrustedKeys []crypto.PublicKey
}

// Decision is the result of a gate evaluation.
type Decision struct {
	Deployable bool   `json:"deployable"`
	HasModel   bool   `json:"has_model"`
	Signed     bool   `json:"signed"`
	Verified   bool   `json:"verified"`
	Reason     string `json:"reason"`
}

const (
	ReasonNoModel    = "no model components"
	ReasonSigned     = "model components and signature present"
	ReasonUnsigned   = "unsigned BOM with model artifacts"
	ReasonVerified   = "model components and latest signature verifies"
	ReasonUnverified = "latest signature does not verify against a trusted key"
)

// Evaluate applies the gate. In Permissive mode the result always agrees with
// IsDeployable.
func (g Gate) Evaluate(doc bom.Document) Decision {
	d := Decision{
		HasModel: doc.HasComponentType(bom.ComponentModel),
		Signed:   doc.HasSignatures(),
	}
	if !d.HasModel {
		d.Deployable = true
		d.Reason = ReasonNoModel
		return d
	}
	if !d.Signed {
		d.Reason = ReasonUnsigned
		return d
	}
	if g.Mode != compliance.Strict {
		d.Deployable = true
		d.Reason = ReasonSigned
		return d
	}

	d.Verified = g.Verify(doc)
	d.Deployable = d.Verified
	if d.Verified {
		d.Reason = ReasonVerified
	} else {
		d.Reason = ReasonUnverified
	}
	return d
}

// Verify reports whether the latest signature on doc verifies against one of
// TrustedKeys, or against its own key_id when TrustedKeys is empty.
func (g Gate) Verify(doc bom.Document) bool {
	if len(g.TrustedKeys) == 0 {
		return signing.Verify(doc, nil)
	}
	for _, k := range g.TrustedKeys {
		if signing.Verify(doc, k) {
			return true
		}
	}
	return false
}

// LoadTrustedKeys reads the public key files named in paths.
func LoadTrustedKeys(paths []string) ([]crypto.PublicKey, error) {
	out := make([]crypto.PublicKey, 0, len(paths))
	for _, p := range paths {
		k, err := signing.LoadPublicKey(p)
		if err != nil {
			return nil, fmt.Errorf("trusted key %s: %w", p, err)
		}
		out = append(out, k)
	}
	return out, nil
}
