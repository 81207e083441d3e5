package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {

	assert.Equal(t, "sha256:abc", RightOfFirstOr("nginx@sha256:abc", "@", ""))
	assert.Equal(t, "", RightOfFirstOr("nginx:latest", "@", ""))
	assert.Equal(t, "nginx", LeftOfFirstOr("nginx@sha256:abc", "@", "nginx"))
	assert.Equal(t, "abc", RightOfPrefixOr("sha256:abc", "sha256:", ""))
	assert.Equal(t, "", RightOfPrefixOr("short:abc", "sha256:", ""))
}

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "sha256:f85340bf132a", ShortDigest("sha256:f85340bf132ae11cac4ecb57d09b0a6467d0a8b6bbf10b4d9c804eeca3cd1619"))
	assert.Equal(t, "short:ab12cd", ShortDigest("short:ab12cd"))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(" True "))
	assert.True(t, ToBool("on"))
	assert.False(t, ToBool("off"))
	assert.False(t, ToBool(""))
}
