package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Ordering
		wantErr bool
	}{
		{in: "", want: OrderingLexical},
		{in: "lexical", want: OrderingLexical},
		{in: " SemVer ", want: OrderingSemver},
		{in: "calendar", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOrdering(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrdering_Sort(t *testing.T) {
	t.Parallel()

	t.Run("lexical keeps string order", func(t *testing.T) {
		t.Parallel()

		versions := []string{"v1.10.0", "v1.9.0", "v1.2.0"}
		OrderingLexical.Sort(versions)
		assert.Equal(t, []string{"v1.10.0", "v1.2.0", "v1.9.0"}, versions)
	})

	t.Run("semver orders numerically", func(t *testing.T) {
		t.Parallel()

		versions := []string{"v1.10.0", "v1.9.0", "v1.2.0"}
		OrderingSemver.Sort(versions)
		assert.Equal(t, []string{"v1.2.0", "v1.9.0", "v1.10.0"}, versions)
	})

	t.Run("semver puts unparseable identifiers first", func(t *testing.T) {
		t.Parallel()

		versions := []string{"v2.0.0", "nightly", "v1.0.0", "latest"}
		OrderingSemver.Sort(versions)
		assert.Equal(t, []string{"latest", "nightly", "v1.0.0", "v2.0.0"}, versions)
	})
}

func TestOrdering_Predecessor(t *testing.T) {
	t.Parallel()

	versions := []string{"v1.1.0", "v1.0.0", "v1.2.0"}

	prev, found, ok := OrderingLexical.Predecessor(versions, "v1.1.0")
	assert.True(t, found)
	assert.True(t, ok)
	assert.Equal(t, "v1.0.0", prev)

	_, found, ok = OrderingLexical.Predecessor(versions, "v1.0.0")
	assert.True(t, found)
	assert.False(t, ok)

	_, found, ok = OrderingLexical.Predecessor(versions, "v9.9.9")
	assert.False(t, found)
	assert.False(t, ok)

	// Input slice is left untouched
	assert.Equal(t, []string{"v1.1.0", "v1.0.0", "v1.2.0"}, versions)
}
