package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "valid custom config",
			config: Config{
				BindAddress: ":9090",
				Path:        "/api/graphql",
				TimeoutStr:  "10s",
				Backend:     BackendConfig{Type: BackendNATS, Bucket: "queries"},
			},
			wantErr: false,
		},
		{
			name:    "empty config gets defaults",
			config:  Config{},
			wantErr: false,
		},
		{
			name: "invalid path (no leading slash)",
			config: Config{
				Path: "graphql",
			},
			wantErr: true,
		},
		{
			name: "invalid timeout format",
			config: Config{
				TimeoutStr: "not-a-duration",
			},
			wantErr: true,
		},
		{
			name: "timeout too short",
			config: Config{
				TimeoutStr: "10ms",
			},
			wantErr: true,
		},
		{
			name: "timeout too long",
			config: Config{
				TimeoutStr: "10m",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	config := Config{EnableCORS: true}
	require.NoError(t, config.Validate())

	assert.Equal(t, ":8080", config.BindAddress)
	assert.Equal(t, "/graphql", config.Path)
	assert.Equal(t, 30*time.Second, config.Timeout())
	assert.Equal(t, []string{"*"}, config.CORSOrigins)
}

func TestBackendConfigEnabled(t *testing.T) {
	assert.True(t, (&BackendConfig{Type: BackendMemory}).Enabled())
	assert.True(t, (&BackendConfig{Type: BackendNATS}).Enabled())
	assert.True(t, (&BackendConfig{Type: BackendRedis}).Enabled())
	assert.False(t, (&BackendConfig{}).Enabled())
	assert.False(t, (&BackendConfig{Type: "postgres"}).Enabled())
}
