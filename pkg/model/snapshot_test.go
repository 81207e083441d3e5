package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseImageRef(t *testing.T) {

	cases := []struct {
		input string
		name  string
		tag   string
	}{
		{"nginx:latest", "nginx", "latest"},
		{"nginx", "nginx", "latest"},
		{"registry.com/nginx:1.21", "registry.com/nginx", "1.21"},
		{"nginx@sha256:abc123", "nginx", "digest"},
		{"louislam/dockge:1", "louislam/dockge", "1"},
		{"", "unknown", "unknown"},
	}
	for _, tc := range cases {
		name, tag := ParseImageRef(tc.input)
		assert.Equal(t, tc.name, name, tc.input)
		assert.Equal(t, tc.tag, tag, tc.input)
	}
}

func TestSnapshotValidate(t *testing.T) {

	snap := NewTestSnapshot("dockge", "sha256:aaa")
	assert.NoError(t, snap.Validate())

	snap.Digest = ""
	assert.Error(t, snap.Validate())

	snap = NewTestSnapshot("", "sha256:aaa")
	assert.Error(t, snap.Validate())
}

func TestSnapshotImageRef(t *testing.T) {
	snap := NewTestSnapshot("dockge", "sha256:aaa")
	assert.Equal(t, "nginx:latest", snap.ImageRef())
	assert.Equal(t, "dockge (nginx:latest)", snap.String())
}
