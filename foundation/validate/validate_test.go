package validate_test

import (
	"testing"

	"github.com/ardanlabs/powmesh/foundation/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mineRequest struct {
	Data string `json:"data" validate:"required,max=8"`
}

func TestCheck(t *testing.T) {
	require.NoError(t, validate.Check(mineRequest{Data: "payload"}))

	err := validate.Check(mineRequest{})
	require.Error(t, err)
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	assert.Contains(t, fields, "data")
	assert.Contains(t, fields["data"], "required")

	err = validate.Check(mineRequest{Data: "much too long"})
	require.True(t, validate.IsFieldErrors(err))
	assert.Contains(t, validate.GetFieldErrors(err).Fields(), "data")
}
