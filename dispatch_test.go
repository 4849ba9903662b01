package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWork(context.Context) (Outcome, error) {
	return Outcome{Success: true}, nil
}

func TestDescriptorValidate(t *testing.T) {
	desc := Descriptor{Operation: "story_write", Work: validWork}
	require.NoError(t, desc.Validate())

	missingOp := Descriptor{Work: validWork}
	err := missingOp.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidDescriptor, ErrorCode(err))

	missingWork := Descriptor{Operation: "story_write"}
	err = missingWork.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidDescriptor, ErrorCode(err))
}

func TestNewRunIDGeneratesUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate run ID %s", id)
		seen[id] = true
	}
}
