package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMAC(t *testing.T) {
	a := HMACSHA256Hex("secret", "export:students")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HMACSHA256Hex("secret", "export:students"))
	assert.NotEqual(t, a, HMACSHA256Hex("other", "export:students"))

	assert.True(t, ValidHMAC("secret", "export:students", a))
	assert.False(t, ValidHMAC("secret", "export:students", ""))
}

func TestNowISO(t *testing.T) {
	_, err := time.Parse(time.RFC3339, NowISO())
	require.NoError(t, err)
}
