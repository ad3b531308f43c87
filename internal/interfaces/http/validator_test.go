package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("dealer_bot"))
	assert.True(t, ValidSlug("user-42"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("has spaces"))
	assert.False(t, ValidSlug("drop;table"))
}

func TestValidChannelID(t *testing.T) {
	assert.True(t, ValidChannelID("@dealer_channel"))
	assert.True(t, ValidChannelID("-1001234567890"))
	assert.True(t, ValidChannelID("123456"))
	assert.False(t, ValidChannelID(""))
	assert.False(t, ValidChannelID("@"))
	assert.False(t, ValidChannelID("not a channel"))
	assert.False(t, ValidChannelID("-"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "clean", SanitizeString("cle\x00an"))
	assert.Equal(t, "ok", SanitizeString("ok"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
	assert.Equal(t, "abc", TruncateString("abc", 10))
}
