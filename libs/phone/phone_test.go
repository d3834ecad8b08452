package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("(650) 253-0000", "US")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	got, err = Normalize("+44 20 7031 3000", "US")
	require.NoError(t, err)
	assert.Equal(t, "+442070313000", got)

	_, err = Normalize("12", "US")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Normalize("", "US")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "+1 650-253-0000", Display("+16502530000"))
	assert.Equal(t, "garbage", Display("garbage"))
}
