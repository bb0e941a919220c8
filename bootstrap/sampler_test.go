package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample_Deterministic(t *testing.T) {
	a, err := Sample(42, 3, 100)
	require.NoError(t, err)
	b, err := Sample(42, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSample_OrdinalsDiffer(t *testing.T) {
	a, err := Sample(42, 0, 100)
	require.NoError(t, err)
	b, err := Sample(42, 1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSample_SeedsDiffer(t *testing.T) {
	a, err := Sample(1, 0, 100)
	require.NoError(t, err)
	b, err := Sample(2, 0, 100)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSample_TwoBootstrapsOfFive(t *testing.T) {
	for ordinal := 0; ordinal < 2; ordinal++ {
		idx, err := Sample(0, ordinal, 5)
		require.NoError(t, err)
		require.Len(t, idx, 5)
		for _, v := range idx {
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, 5)
		}

		again, err := Sample(0, ordinal, 5)
		require.NoError(t, err)
		assert.Equal(t, idx, again, "ordinal %d must reproduce", ordinal)
	}
}

func TestSample_Validation(t *testing.T) {
	_, err := Sample(0, -1, 5)
	assert.Error(t, err)

	_, err = Sample(0, 0, 0)
	assert.Error(t, err)
}
