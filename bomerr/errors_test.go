package bomerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_UnwrapsAndClassifies(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindKeyFormat, RuleKeyPEM, "bad pem", cause)

	require.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindKeyFormat))
	assert.False(t, IsKind(err, KindSigning))
	assert.Equal(t, RuleKeyPEM, RuleID(err))
	assert.Equal(t, "bad pem: boom", err.Error())
}

func TestIsKind_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("loading: %w", New(KindValidation, RuleValDocument, "missing name"))
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, RuleValDocument, RuleID(err))
}

func TestWrap_NilCause(t *testing.T) {
	err := Wrap(KindEncoding, RuleEncodeValue, "nope", nil)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Nil(t, e.Cause)
	assert.Equal(t, "nope", err.Error())
}

func TestRuleID_Unstructured(t *testing.T) {
	assert.Equal(t, "", RuleID(errors.New("plain")))
	assert.False(t, IsKind(nil, KindEncoding))
}
