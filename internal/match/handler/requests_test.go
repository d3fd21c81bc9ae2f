package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "penmatch/pkg/domain-errors"
)

func TestMatchRequestValidate(t *testing.T) {
	t.Run("oversized fields are reported in declaration order", func(t *testing.T) {
		for range 20 {
			req := &MatchRequest{
				Surname:     strings.Repeat("A", maxNameLength+1),
				MiddleName:  strings.Repeat("B", maxNameLength+1),
				DateOfBirth: "2005-01-01",
				PEN:         strings.Repeat("1", maxCodeLength+1),
			}
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, "surname must be at most 100 characters", dErrors.MessageOf(err))
		}
	})

	t.Run("code fields use the code limit", func(t *testing.T) {
		req := &MatchRequest{Surname: "Smith", DateOfBirth: "2005-01-01", Mincode: strings.Repeat("9", maxCodeLength+1)}
		assert.Equal(t, "mincode must be at most 20 characters", dErrors.MessageOf(req.Validate()))
	})

	t.Run("unparseable birth date", func(t *testing.T) {
		for _, dob := range []string{"garbage", "2005-13-01", "2005-02-30", "99999999"} {
			req := &MatchRequest{Surname: "Smith", DateOfBirth: dob}
			err := req.Validate()
			require.Error(t, err, dob)
			assert.Equal(t, "date_of_birth is not a valid date", dErrors.MessageOf(err), dob)
		}
	})

	t.Run("partial birth date is accepted", func(t *testing.T) {
		req := &MatchRequest{Surname: "Smith", DateOfBirth: "2005"}
		require.NoError(t, req.Validate())
		assert.NotEmpty(t, req.CorrelationID)
	})
}
