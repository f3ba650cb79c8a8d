package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want bool
	}{
		{"rate limited", "received 429 from upstream", true},
		{"timeout substring", "request timeout after 30s", true},
		{"timed out phrasing matches its own explicit marker", "completion call timed out after 1s: context deadline exceeded", true},
		{"temporarily unavailable", "service temporarily unavailable", true},
		{"bare 500", "upstream returned 500", true},
		{"bare 503", "503 Service Unavailable", true},
		{"case insensitive", "UPSTREAM 429 TOO MANY REQUESTS", true},
		{"permanent 400", "400 bad request: invalid schema", false},
		{"permanent 401", "401 unauthorized", false},
		{"generic failure", "something went wrong", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}

func TestIs5xxMarker(t *testing.T) {
	assert.True(t, is5xxMarker("502 bad gateway"))
	assert.True(t, is5xxMarker("504 gateway timeout"))
	assert.False(t, is5xxMarker("404 not found"))
}
