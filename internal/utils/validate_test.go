package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"SCS", true},
		{"/mnt/data/SCS", true},
		{"OpenVDM/TransferLogs", true},
		{"Vehicle/../Lowerings", true},
		{"", false},
		{"..", false},
		{"../etc", false},
		{"SCS/../../etc", false},
		{"bad\x00path", false},
		{"tab\tpath", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPath(tt.path))
		})
	}
}

func TestValidateHostname(t *testing.T) {
	for _, host := range []string{"scs.ship", "10.0.0.5", "shore.example.org", "nas-01"} {
		assert.NoError(t, ValidateHostname(host), host)
	}
	for _, host := range []string{"", "-bad.ship", "bad-.ship", "two..dots", "under_score", "host:22", "//smb/share"} {
		assert.Error(t, ValidateHostname(host), host)
	}
}
