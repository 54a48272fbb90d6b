package bom

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aibom.dev/ledger/bomerr"
)

var sha256Hex = strings.Repeat("ab", 32)

func TestNewFingerprint(t *testing.T) {
	fp, err := NewFingerprint("sha256", sha256Hex)
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+sha256Hex, fp.Digest().String())

	_, err = NewFingerprint("sha512", strings.Repeat("0f", 64))
	require.NoError(t, err)
}

func TestNewFingerprint_Rejects(t *testing.T) {
	cases := map[string]Fingerprint{
		"short by one":   {Algorithm: "sha256", Hash: sha256Hex[:63]},
		"uppercase":      {Algorithm: "sha256", Hash: strings.ToUpper(sha256Hex)},
		"non-hex":        {Algorithm: "sha256", Hash: strings.Repeat("zz", 32)},
		"sha512 length":  {Algorithm: "sha512", Hash: sha256Hex},
		"unknown alg":    {Algorithm: "md5", Hash: strings.Repeat("a", 32)},
		"empty":          {},
		"sha384 refused": {Algorithm: "sha384", Hash: strings.Repeat("a", 96)},
	}
	for name, fp := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewFingerprint(fp.Algorithm, fp.Hash)
			require.Error(t, err)
			assert.True(t, bomerr.IsKind(err, bomerr.KindValidation))
			assert.Equal(t, bomerr.RuleValFingerprint, bomerr.RuleID(err))
		})
	}
}

func TestNewComponent(t *testing.T) {
	c, err := NewComponent(Component{
		Type:        ComponentModel,
		Name:        "resnet",
		Fingerprint: Fingerprint{Algorithm: "sha256", Hash: sha256Hex},
		Origin:      &Origin{Git: &GitOrigin{Repo: "https://example.com/r.git", Commit: "abc"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ComponentID)

	_, err = NewComponent(Component{Type: "weights", Name: "x", Fingerprint: Fingerprint{Algorithm: "sha256", Hash: sha256Hex}})
	assert.Equal(t, bomerr.RuleValComponentType, bomerr.RuleID(err))

	_, err = NewComponent(Component{Type: ComponentCode, Name: " ", Fingerprint: Fingerprint{Algorithm: "sha256", Hash: sha256Hex}})
	assert.Equal(t, bomerr.RuleValComponent, bomerr.RuleID(err))
}

func TestOrigin_Validate(t *testing.T) {
	assert.NoError(t, (*Origin)(nil).Validate())
	assert.NoError(t, (&Origin{URL: "https://huggingface.co/org/model"}).Validate())
	assert.NoError(t, (&Origin{S3: "s3://bucket/key"}).Validate())

	for _, o := range []*Origin{
		{},
		{Git: &GitOrigin{}},
		{URL: "relative/path"},
		{S3: "bucket/key"},
	} {
		err := o.Validate()
		require.Error(t, err)
		assert.Equal(t, bomerr.RuleValOrigin, bomerr.RuleID(err))
	}
}

func TestNew_BuildsValidDocument(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc, err := New(Header{Name: "demo", Version: "1.0.0", CreatedAt: created, CreatedBy: "ci"},
		[]Component{{Type: ComponentModel, Name: "m", Fingerprint: Fingerprint{Algorithm: "sha256", Hash: sha256Hex}}},
		[]Evaluation{{EvalID: "e1", DatasetID: "imagenet-val", Metrics: map[string]any{"top1": 0.91, "recall": 1.0}, RunAt: &created}},
	)
	require.NoError(t, err)
	comp := doc.Components()[0].(map[string]any)
	assert.NotEmpty(t, comp["component_id"])
	eval := doc[FieldEvaluations].([]any)[0].(map[string]any)
	assert.Equal(t, "imagenet-val", eval["dataset_id"])
	assert.Equal(t, "2024-05-01T12:00:00Z", eval["run_at"])
	assert.Equal(t, json.Number("1.0"), eval["metrics"].(map[string]any)["recall"])
	assert.NotEmpty(t, doc.String(FieldBOMID))
	assert.Equal(t, "2024-05-01T12:00:00Z", doc.String(FieldCreatedAt))
	assert.True(t, doc.HasComponentType(ComponentModel))
	assert.False(t, doc.HasComponentType(ComponentDataset))
	assert.False(t, doc.HasSignatures())
	assert.Len(t, doc.Components(), 1)
}

func TestNew_RejectsMissingName(t *testing.T) {
	_, err := New(Header{Version: "1"}, nil, nil)
	require.Error(t, err)
	assert.True(t, bomerr.IsKind(err, bomerr.KindValidation))
}

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte(`{"name":"x","n":12345678901234567}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567"), doc["n"])

	for _, in := range []string{`[]`, `"s"`, `{`, `{} {}`} {
		_, err := Decode([]byte(in))
		require.Error(t, err, in)
		assert.True(t, bomerr.IsKind(err, bomerr.KindValidation))
	}
}

func TestParse_Validates(t *testing.T) {
	_, err := Parse([]byte(`{"name":"x","version":"1","components":[{"component_id":"c1","type":"model","name":"m","fingerprint":{"algorithm":"sha256","hash":"abc"}}]}`))
	require.Error(t, err)
	assert.Equal(t, bomerr.RuleValFingerprint, bomerr.RuleID(err))

	_, err = Parse([]byte(`{"name":"x","version":"1","components":[{"type":"model","name":"m","fingerprint":{"algorithm":"sha256","hash":"` + sha256Hex + `"}}]}`))
	require.Error(t, err)
	assert.Equal(t, bomerr.RuleValComponent, bomerr.RuleID(err))
	assert.Contains(t, err.Error(), "component_id")

	_, err = Parse([]byte(`{"name":"x","version":"1","evaluations":[{"eval_id":"e","run_at":"last week"}]}`))
	assert.Equal(t, bomerr.RuleValTimestamp, bomerr.RuleID(err))

	_, err = Parse([]byte(`{"name":"x","version":"1","evaluations":[{"metrics":[1]}]}`))
	assert.Equal(t, bomerr.RuleValDocument, bomerr.RuleID(err))

	_, err = Parse([]byte(`{"name":"x","version":"1","components":{}}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"name":"x","version":"1","created_at":"yesterday"}`))
	assert.Equal(t, bomerr.RuleValTimestamp, bomerr.RuleID(err))

	_, err = Parse([]byte(`{"name":"x","version":"1","signatures":[{"key_id":"k","algorithm":"ed25519-sha256"}]}`))
	assert.Equal(t, bomerr.RuleValSignature, bomerr.RuleID(err))

	doc, err := Parse([]byte(`{"name":"x","version":"1","created_at":"2024-01-01T00:00:00.123456+00:00","extra":{"k":[1,2]}}`))
	require.NoError(t, err)
	assert.Contains(t, doc.Keys(), "extra")
}

func TestMarshal_KeepsFloatForm(t *testing.T) {
	doc := Document{"name": "x", "metrics": map[string]any{"accuracy": 1.0, "n": 3, "lit": json.Number("2.50")}}
	b, err := doc.Marshal()
	require.NoError(t, err)
	back, err := Decode(b)
	require.NoError(t, err)
	m := back["metrics"].(map[string]any)
	assert.Equal(t, json.Number("1.0"), m["accuracy"])
	assert.Equal(t, json.Number("3"), m["n"])
	assert.Equal(t, json.Number("2.50"), m["lit"])
}

func TestPayload_StripsSignaturesWithoutMutating(t *testing.T) {
	doc := Document{"name": "x", "signatures": []any{map[string]any{"key_id": "k"}}, "nested": map[string]any{"a": []any{1}}}
	p := doc.Payload()
	_, has := p[FieldSignatures]
	assert.False(t, has)
	assert.True(t, doc.HasSignatures())

	p["nested"].(map[string]any)["a"] = "changed"
	assert.Equal(t, []any{1}, doc["nested"].(map[string]any)["a"])
}

func TestClone_Deep(t *testing.T) {
	doc := Document{"components": []any{map[string]any{"type": "model"}}}
	c := doc.Clone()
	c.Components()[0].(map[string]any)["type"] = "code"
	assert.True(t, doc.HasComponentType(ComponentModel))
	assert.Nil(t, Document(nil).Clone())
}

func TestSignatureAt(t *testing.T) {
	doc := Document{"signatures": []any{
		Signature{KeyID: "a", Algorithm: "ed25519-sha256", Signature: "c2ln", SignedAt: "2024-01-01T00:00:00Z"}.Record(),
		"garbage",
	}}
	s, err := doc.SignatureAt(0)
	require.NoError(t, err)
	assert.Equal(t, "a", s.KeyID)

	_, err = doc.SignatureAt(1)
	require.Error(t, err)
	_, err = doc.SignatureAt(2)
	require.Error(t, err)
}

func TestMarshal_Indented(t *testing.T) {
	b, err := Document{"name": "x"}.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"x\"\n}\n", string(b))
}
