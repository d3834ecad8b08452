package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required,max=10"`
	Slug     string `json:"slug" validate:"required,slug"`
	Duration int    `json:"duration_minutes" validate:"gt=0"`
	Opens    string `json:"opens" validate:"omitempty,clock"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func TestStructMessages(t *testing.T) {
	ok := sample{Name: "Cut", Slug: "main-street", Duration: 30, Opens: "09:00"}
	require.NoError(t, Struct(ok))

	cases := map[string]sample{
		"name is required":                                                   {Slug: "a", Duration: 1},
		"duration_minutes must be greater than 0":                            {Name: "a", Slug: "a"},
		"opens must be a time of day as HH:MM":                               {Name: "a", Slug: "a", Duration: 1, Opens: "9"},
		"email must be a valid email address":                                {Name: "a", Slug: "a", Duration: 1, Email: "nope"},
		"slug may only contain lowercase letters, digits and single hyphens": {Name: "a", Slug: "Main--St", Duration: 1},
	}
	for want, in := range cases {
		err := Struct(in)
		require.Error(t, err)
		assert.Equal(t, want, err.Error())
		assert.True(t, IsValidation(err))
	}
}

func TestFail(t *testing.T) {
	err := Fail("price", "price must not be negative")
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("db down")))
}
