package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/effective-security/biomcp/registry"
)

func writeConfig(t *testing.T, cfg *registry.Config) string {
	t.Helper()
	js, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(file, js, 0o644))
	return file
}

func TestLoadConfig(t *testing.T) {
	cfg := &registry.Config{
		Providers: []*registry.ProviderDescriptor{
			{
				Name:    "pubmed",
				Kind:    registry.KindStdio,
				Command: "bin/pubmed-mcp",
				Args:    []string{"-email", "curator@example.org"},
				Env:     []string{"NCBI_API_KEY=${NCBI_API_KEY}"},
			},
			{
				Name: "opentargets",
				Kind: registry.KindSSE,
				URL:  "https://mcp.example.org/opentargets/sse",
			},
		},
	}

	t.Setenv("NCBI_API_KEY", "abcd1234")

	loaded, err := registry.LoadConfig(writeConfig(t, cfg))
	require.NoError(t, err)
	require.Len(t, loaded.Providers, 2)

	assert.Equal(t, "pubmed", loaded.Providers[0].Name)
	assert.Equal(t, registry.KindStdio, loaded.Providers[0].Kind)
	assert.Equal(t, []string{"-email", "curator@example.org"}, loaded.Providers[0].Args)
	assert.Equal(t, []string{"NCBI_API_KEY=abcd1234"}, loaded.Providers[0].Env)

	assert.Equal(t, registry.KindSSE, loaded.Providers[1].Kind)
	assert.Equal(t, "https://mcp.example.org/opentargets/sse", loaded.Providers[1].URL)
}

func TestLoadConfigInvalid(t *testing.T) {
	tcases := []struct {
		name string
		cfg  *registry.Config
	}{
		{
			name: "no providers",
			cfg:  &registry.Config{},
		},
		{
			name: "missing name",
			cfg: &registry.Config{
				Providers: []*registry.ProviderDescriptor{{Kind: registry.KindStdio, Command: "bin/pubmed-mcp"}},
			},
		},
		{
			name: "unsupported kind",
			cfg: &registry.Config{
				Providers: []*registry.ProviderDescriptor{{Name: "pubmed", Kind: "websocket"}},
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.LoadConfig(writeConfig(t, tc.cfg))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid providers configuration")
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := registry.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
