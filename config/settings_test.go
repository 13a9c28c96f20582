package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScheme_Layout(t *testing.T) {
	s := DefaultScheme()

	assert.Empty(t, s.Validate())
	assert.Equal(t, uint32(16), s.DistanceModulus())
	assert.Equal(t, 15, s.MaxDistance())
	assert.Equal(t, uint32(0xFFFFFFF0), s.BaseMask())
	assert.Equal(t, uint(21), s.ClusterShift())
	assert.Equal(t, uint32(0xFFE00000), s.ClusterMask())
	assert.Equal(t, uint64(1<<25-1), s.MaxLocalID())
}

func TestEncodingScheme_Validate(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(s *EncodingScheme)
		expectedErrors int
	}{
		{"default scheme", func(s *EncodingScheme) {}, 0},
		{"two bit distance field", func(s *EncodingScheme) { s.DistanceBits = 2 }, 0},
		{"zero distance bits", func(s *EncodingScheme) { s.DistanceBits = 0 }, 1},
		{"oversized distance field", func(s *EncodingScheme) { s.DistanceBits = 9 }, 1},
		{"oversized cluster field", func(s *EncodingScheme) { s.ClusterBits = 17 }, 1},
		{"y shift above x shift", func(s *EncodingScheme) { s.TileYShift = 40 }, 2},
		{"zoom overlapping x field", func(s *EncodingScheme) { s.MaxZoom = 15 }, 1},
		{"invalid version", func(s *EncodingScheme) { s.Version = -1 }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultScheme()
			tt.mutate(&s)
			conflicts := s.Validate()
			if len(conflicts) != tt.expectedErrors {
				t.Errorf("Expected %d conflicts, got %d: %v", tt.expectedErrors, len(conflicts), conflicts)
			}
		})
	}
}

func TestEncodingScheme_ApplyDefaults(t *testing.T) {
	var s EncodingScheme
	s.ApplyDefaults()
	assert.Equal(t, DefaultScheme(), s)

	custom := EncodingScheme{DistanceBits: 2}
	custom.ApplyDefaults()
	assert.Equal(t, uint(2), custom.DistanceBits, "explicit values must survive defaults")
	assert.Equal(t, uint(DefaultClusterBits), custom.ClusterBits)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geokeys.toml")
	content := `
[server]
port = "9000"

[index]
shard_level = 2

[encoding]
distance_bits = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 2, cfg.Server.JobWorkers)
	assert.Equal(t, 2, cfg.Index.ShardLevel)
	assert.Equal(t, "places", cfg.Index.ID)
	assert.Equal(t, uint(2), cfg.Encoding.DistanceBits)
	assert.Equal(t, uint(DefaultClusterBits), cfg.Encoding.ClusterBits)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_ValidateShardLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.ShardLevel = 8
	assert.Len(t, cfg.Validate(), 1)
}
