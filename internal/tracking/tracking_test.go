package tracking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	link, id := Generate("https://t.example/r", "5551234567")

	require.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(link, "https://t.example/r?"), link)
	assert.Equal(t, "https://t.example/r?id="+id+"&recipient=5551234567", link)

	gotID, recipient, err := Parse(link)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "5551234567", recipient)
}

func TestGenerate_BaseWithQuery(t *testing.T) {
	link, id := Generate("https://t.example/r?src=sms", "+1 555")

	assert.Equal(t, "https://t.example/r?src=sms&id="+id+"&recipient=%2B1+555", link)

	_, recipient, err := Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "+1 555", recipient)
}

func TestGenerate_Unique(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		link, id := Generate("https://t.example/r", "x")
		if !strings.Contains(link, "id="+id) {
			t.Fatalf("link %q does not carry id %q", link, id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id after %d calls: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestParse_Rejects(t *testing.T) {
	_, _, err := Parse("https://t.example/r?recipient=1")
	assert.Error(t, err)

	_, _, err = Parse("https://t.example/r?id=not-a-uuid")
	assert.Error(t, err)
}
