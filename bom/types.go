package bom

import (
	"time"

	"github.com/google/uuid"
)

// ComponentType is the closed set of component kinds.
type ComponentType string

const (
	ComponentModel      ComponentType = "model"
	ComponentDataset    ComponentType = "dataset"
	ComponentCode       ComponentType = "code"
	ComponentDependency ComponentType = "dependency"
	ComponentConfig     ComponentType = "config"
	ComponentArtifact   ComponentType = "artifact"
)

var componentTypes = map[ComponentType]struct{}{
	ComponentModel:      {},
	ComponentDataset:    {},
	ComponentCode:       {},
	ComponentDependency: {},
	ComponentConfig:     {},
	ComponentArtifact:   {},
}

// Valid reports whether t is one of the known component types.
func (t ComponentType) Valid() bool {
	_, ok := componentTypes[t]
	return ok
}

// Fingerprint is a content digest of a component.
type Fingerprint struct {
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
}

// GitOrigin points at a commit in a git repository.
type GitOrigin struct {
	Repo   string `json:"repo,omitempty"`
	Commit string `json:"commit,omitempty"`
	Path   string `json:"path,omitempty"`
}

func (g *GitOrigin) empty() bool {
	return g == nil || (g.Repo == "" && g.Commit == "" && g.Path == "")
}

// Origin records where a component came from. At least one of Git, URL or S3
// must be set.
type Origin struct {
	Git *GitOrigin `json:"git,omitempty"`
	URL string     `json:"url,omitempty"`
	S3  string     `json:"s3,omitempty"`
}

// Component is one entry of a BOM.
type Component struct {
	ComponentID string         `json:"component_id"`
	Type        ComponentType  `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Origin      *Origin        `json:"origin,omitempty"`
	License     string         `json:"license,omitempty"`
	Fingerprint Fingerprint    `json:"fingerprint"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Evaluation is a recorded model evaluation. Every field is optional.
type Evaluation struct {
	EvalID    string         `json:"eval_id,omitempty"`
	DatasetID string         `json:"dataset_id,omitempty"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	RunAt     *time.Time     `json:"run_at,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}

// Signature is one entry of the append-only signatures list.
type Signature struct {
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm"`
	Signature string `json:"signature"`
	SignedAt  string `json:"signed_at"`
}

// Record converts the signature into its document form.
func (s Signature) Record() map[string]any {
	return map[string]any{
		"key_id":    s.KeyID,
		"algorithm": s.Algorithm,
		"signature": s.Signature,
		"signed_at": s.SignedAt,
	}
}

// Header carries the top-level descriptive fields of a new document.
type Header struct {
	BOMID          string
	ProjectID      string
	Name           string
	Version        string
	Description    string
	ParentBOM      string
	CreatedBy      string
	RiskAssessment map[string]any
	CreatedAt      time.Time
}

// NewFingerprint returns a validated fingerprint.
func NewFingerprint(algorithm, hash string) (Fingerprint, error) {
	fp := Fingerprint{Algorithm: algorithm, Hash: hash}
	if err := fp.Validate(); err != nil {
		return Fingerprint{}, err
	}
	return fp, nil
}

// NewComponent returns a validated component. An empty ComponentID is filled
// with a random UUID.
func NewComponent(c Component) (Component, error) {
	if c.ComponentID == "" {
		c.ComponentID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return Component{}, err
	}
	return c, nil
}

// New builds a validated, unsigned document. Components without an id get
// a random UUID.
func New(h Header, components []Component, evaluations []Evaluation) (Document, error) {
	if h.BOMID == "" {
		h.BOMID = uuid.NewString()
	}
	components = append([]Component(nil), components...)
	for i := range components {
		if components[i].ComponentID == "" {
			components[i].ComponentID = uuid.NewString()
		}
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if len(components) == 0 {
		components = []Component{}
	}
	if evaluations == nil {
		evaluations = []Evaluation{}
	}
	v := map[string]any{
		FieldBOMID:       h.BOMID,
		FieldName:        h.Name,
		FieldVersion:     h.Version,
		FieldComponents:  components,
		FieldEvaluations: evaluations,
		FieldCreatedAt:   h.CreatedAt.UTC().Format(time.RFC3339),
	}
	if h.ProjectID != "" {
		v[FieldProjectID] = h.ProjectID
	}
	if h.Description != "" {
		v[FieldDescription] = h.Description
	}
	if h.ParentBOM != "" {
		v[FieldParentBOM] = h.ParentBOM
	}
	if h.CreatedBy != "" {
		v[FieldCreatedBy] = h.CreatedBy
	}
	if h.RiskAssessment != nil {
		v[FieldRiskAssessment] = h.RiskAssessment
	}
	doc, err := FromValue(v)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}
