package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Text string `validate:"required,max=10"`
	From string `validate:"required,oneof=id bkm nij"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sampleRequest{Text: "halo", From: "id"}))

	err := ValidateStruct(sampleRequest{Text: "", From: "en"})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidInput, GetErrorCode(err))

	var appErr *AppError
	require.True(t, AsError(err, &appErr))
	assert.Contains(t, appErr.Details, "Text failed required")
	assert.Contains(t, appErr.Details, "From failed oneof=id bkm nij")
}

func TestValidateStruct_MaxLength(t *testing.T) {
	err := ValidateStruct(sampleRequest{Text: "abcdefghijk", From: "nij"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Text failed max=10")
}

func TestIsValidVar(t *testing.T) {
	assert.True(t, IsValidVar("gemini", "oneof=gemini github"))
	assert.False(t, IsValidVar("openai", "oneof=gemini github"))
}
