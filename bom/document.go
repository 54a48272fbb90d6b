// Package bom models AI bill-of-materials documents.
//
// A Document is kept as a generic JSON object so that fields unknown to this
// package still take part in content identity. The typed structs in this
// package are used to construct documents and to validate them.
package bom

import (
	"bytes"
	"encoding/json"
	"sort"

	"aibom.dev/ledger/bomerr"
	"aibom.dev/ledger/canonical"
)

// Well-known document fields.
const (
	FieldBOMID          = "bom_id"
	FieldProjectID      = "project_id"
	FieldName           = "name"
	FieldVersion        = "version"
	FieldDescription    = "description"
	FieldComponents     = "components"
	FieldEvaluations    = "evaluations"
	FieldRiskAssessment = "risk_assessment"
	FieldParentBOM      = "parent_bom"
	FieldCreatedAt      = "created_at"
	FieldCreatedBy      = "created_by"
	FieldSignatures     = "signatures"
)

// Document is a BOM as a JSON object. Numbers decoded by this package are
// json.Number so they round-trip without precision loss. Go floats stored in a
// Document keep their float form ("1.0") when hashed and marshalled.
type Document map[string]any

// Decode parses data as a JSON object. It does not validate the document.
func Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, bomerr.Wrap(bomerr.KindValidation, bomerr.RuleValDocument, "document is not valid JSON", err)
	}
	if dec.More() {
		return nil, bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "trailing data after document")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "document must be a JSON object")
	}
	return Document(m), nil
}

// Parse decodes and validates a document.
func Parse(data []byte) (Document, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromValue converts any JSON-encodable value (a typed struct, a map) into a
// Document.
func FromValue(v any) (Document, error) {
	if d, ok := v.(Document); ok {
		return d.Clone(), nil
	}
	tree, err := canonical.Normalise(v)
	if err != nil {
		return nil, err
	}
	m, ok := tree.(map[string]any)
	if !ok {
		return nil, bomerr.New(bomerr.KindValidation, bomerr.RuleValDocument, "document must be a JSON object")
	}
	return Document(m), nil
}

// Marshal renders the document as indented JSON for files. Numbers are
// written in the same form the content hash covers.
func (d Document) Marshal() ([]byte, error) {
	tree, err := canonical.Normalise(map[string]any(d))
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindEncoding, bomerr.RuleEncodeValue, "document is not JSON-encodable", err)
	}
	return append(b, '\n'), nil
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Document:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Payload returns a copy of the document without the signatures field. The
// payload is what content hashes and signatures cover.
func (d Document) Payload() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if k == FieldSignatures {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Signatures returns the raw signature records. A missing or non-list field
// yields nil.
func (d Document) Signatures() []any {
	switch t := d[FieldSignatures].(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return nil
	}
}

// HasSignatures reports whether the signatures list is present and non-empty.
func (d Document) HasSignatures() bool {
	return len(d.Signatures()) > 0
}

// Components returns the raw component entries.
func (d Document) Components() []any {
	switch t := d[FieldComponents].(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return nil
	}
}

// HasComponentType reports whether any component has the given type.
func (d Document) HasComponentType(ct ComponentType) bool {
	for _, c := range d.Components() {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if s, _ := m["type"].(string); s == string(ct) {
			return true
		}
	}
	return false
}

// String returns the document field value or "".
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Keys returns the sorted top-level keys.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
