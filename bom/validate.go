package bom

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"aibom.dev/ledger/bomerr"
)

// Fingerprint algorithms accepted for components.
var fingerprintAlgorithms = map[string]digest.Algorithm{
	"sha256": digest.SHA256,
	"sha512": digest.SHA512,
}

// Validate checks the algorithm and that Hash is lowercase hex of the
// algorithm's digest length.
func (f Fingerprint) Validate() error {
	alg, ok := fingerprintAlgorithms[f.Algorithm]
	if !ok {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValFingerprint, fmt.Sprintf("unsupported fingerprint algorithm %q", f.Algorithm))
	}
	if err := alg.Validate(f.Hash); err != nil {
		return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValFingerprint,
			fmt.Sprintf("%s fingerprint must be %d lowercase hex characters", f.Algorithm, alg.Size()*2), err)
	}
	return nil
}

// Digest returns the fingerprint as an OCI-style digest string.
func (f Fingerprint) Digest() digest.Digest {
	return digest.NewDigestFromEncoded(digest.Algorithm(f.Algorithm), f.Hash)
}

// Validate checks that at least one location is set and that URL is absolute.
func (o *Origin) Validate() error {
	if o == nil {
		return nil
	}
	if o.Git.empty() && o.URL == "" && o.S3 == "" {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValOrigin, "origin needs one of git, url or s3")
	}
	if o.URL != "" {
		u, err := url.Parse(o.URL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValOrigin, fmt.Sprintf("origin url %q is not absolute", o.URL), err)
		}
	}
	if o.S3 != "" && !strings.HasPrefix(o.S3, "s3://") {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValOrigin, fmt.Sprintf("origin s3 %q must start with s3://", o.S3))
	}
	return nil
}

// Validate checks a single component.
func (c Component) Validate() error {
	if strings.TrimSpace(c.ComponentID) == "" {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValComponent, "component_id is required")
	}
	if !c.Type.Valid() {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValComponentType, fmt.Sprintf("unknown component type %q", c.Type))
	}
	if strings.TrimSpace(c.Name) == "" {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValComponent, "component name is required")
	}
	if err := c.Fingerprint.Validate(); err != nil {
		return err
	}
	return c.Origin.Validate()
}

// validateEvaluation checks the shape of an evaluation entry. run_at, when
// present, must be an RFC 3339 timestamp.
func validateEvaluation(raw any) error {
	m, ok := raw.(map[string]any)
	if !ok {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "evaluation must be an object")
	}
	if v, ok := m["metrics"]; ok && v != nil {
		if _, isObj := v.(map[string]any); !isObj {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "metrics must be an object")
		}
	}
	if v, ok := m["run_at"]; ok && v != nil {
		s, isStr := v.(string)
		if !isStr {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValTimestamp, "run_at must be a string")
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValTimestamp, "run_at is not RFC 3339", err)
		}
	}
	return nil
}

// Validate checks that the record carries every field and a parseable
// timestamp. It does not check the signature itself.
func (s Signature) Validate() error {
	if s.KeyID == "" || s.Algorithm == "" || s.Signature == "" {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, "signature record needs key_id, algorithm and signature")
	}
	if _, err := time.Parse(time.RFC3339, s.SignedAt); err != nil {
		return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValTimestamp, "signed_at is not RFC 3339", err)
	}
	return nil
}

// Validate performs structural checks on the document.
func (d Document) Validate() error {
	if d == nil {
		return bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "document is empty")
	}
	for _, field := range []string{FieldName, FieldVersion} {
		s, ok := d[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, fmt.Sprintf("%s must be a non-empty string", field))
		}
	}
	if raw, ok := d[FieldCreatedAt]; ok && raw != nil {
		s, isStr := raw.(string)
		if !isStr {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValTimestamp, "created_at must be a string")
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValTimestamp, "created_at is not RFC 3339", err)
		}
	}

	if raw, ok := d[FieldComponents]; ok && raw != nil {
		if d.Components() == nil {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "components must be a list")
		}
	}
	for i, raw := range d.Components() {
		var c Component
		if err := remarshal(raw, &c); err != nil {
			return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValComponent, fmt.Sprintf("component %d is malformed", i), err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}

	if raw, ok := d[FieldEvaluations]; ok && raw != nil {
		evals, isList := raw.([]any)
		if !isList {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "evaluations must be a list")
		}
		for i, e := range evals {
			if err := validateEvaluation(e); err != nil {
				return fmt.Errorf("evaluation %d: %w", i, err)
			}
		}
	}

	if raw, ok := d[FieldSignatures]; ok && raw != nil {
		sigs := d.Signatures()
		if sigs == nil {
			return bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, "signatures must be a list")
		}
		for i, rawSig := range sigs {
			var s Signature
			if err := remarshal(rawSig, &s); err != nil {
				return bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValSignature, fmt.Sprintf("signature %d is malformed", i), err)
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("signature %d: %w", i, err)
			}
		}
	}
	return nil
}

// SignatureAt decodes the i-th signature record.
func (d Document) SignatureAt(i int) (Signature, error) {
	sigs := d.Signatures()
	if i < 0 || i >= len(sigs) {
		return Signature{}, bomerr.New(bomerr.KindValidation, bomerr.RuleValSignature, fmt.Sprintf("no signature at index %d", i))
	}
	var s Signature
	if err := remarshal(sigs[i], &s); err != nil {
		return Signature{}, bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValSignature, fmt.Sprintf("signature %d is malformed", i), err)
	}
	return s, nil
}

func remarshal(in any, out any) error {
	if _, ok := in.(map[string]any); !ok {
		return fmt.Errorf("expected object, got %T", in)
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
