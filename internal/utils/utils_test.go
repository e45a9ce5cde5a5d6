package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACRoundTrip(t *testing.T) {
	sig := SignHMAC("campaign:dcd", "secret")

	assert.True(t, VerifyHMAC("campaign:dcd", sig, "secret"))
	assert.False(t, VerifyHMAC("campaign:other", sig, "secret"))
	assert.False(t, VerifyHMAC("campaign:dcd", sig, "other-secret"))
	assert.NotContains(t, sig, "+")
	assert.NotContains(t, sig, "/")
	assert.NotContains(t, sig, "=")
}

func TestGenerateCode(t *testing.T) {
	code := GenerateCode(8)
	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{8}$`), code)
	assert.NotEqual(t, code, GenerateCode(8))
}
