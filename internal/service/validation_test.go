package service

import (
	"edu_platform_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequestUsesJSONNames(t *testing.T) {
	err := validateRequest(&RegisterRequest{Name: "  ", Email: "bad", Password: "short", OTP: "123456"})
	require.Error(t, err)

	appErr, ok := util.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
	assert.ErrorIs(t, err, util.ErrValidation)
	assert.Contains(t, appErr.Message, "name must not be blank")
	assert.Contains(t, appErr.Message, "email must be a valid email address")
	assert.Contains(t, appErr.Message, "password")
}

func TestValidateRequestPasses(t *testing.T) {
	err := validateRequest(&RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "correct-horse", OTP: "123456"})
	assert.NoError(t, err)
}
