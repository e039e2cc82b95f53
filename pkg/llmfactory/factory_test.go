package llmfactory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/biomcp/pkg/llmfactory"
	"github.com/effective-security/biomcp/pkg/llms"
)

type fakeModel struct {
	name         string
	providerType llms.ProviderType
}

func (m *fakeModel) GetName() string                    { return m.name }
func (m *fakeModel) GetProviderType() llms.ProviderType { return m.providerType }
func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

// overrideNewLLM substitutes the model constructor and restores it on cleanup.
func overrideNewLLM(t *testing.T) {
	t.Helper()
	orig := llmfactory.NewLLM
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeModel{
			name:         cfg.FindModel(preferredModels...),
			providerType: llms.ProviderType(cfg.APIType),
		}, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = orig
	})
}

func testConfig() *llmfactory.Config {
	return &llmfactory.Config{
		DefaultProvider: "openai",
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "openai",
				APIType:         "OPENAI",
				DefaultModel:    "gpt-4o-mini",
				AvailableModels: []string{"gpt-4o-mini", "gpt-4.1"},
			},
			{
				Name:            "anthropic",
				APIType:         "ANTHROPIC",
				DefaultModel:    "claude-sonnet-4-20250514",
				AvailableModels: []string{"claude-sonnet-4-20250514"},
			},
		},
		AgentModels: map[string][]string{
			"biomcp":  {"claude-sonnet-4-20250514"},
			"default": {"gpt-4o-mini"},
		},
	}
}

func TestDefaultModel(t *testing.T) {
	overrideNewLLM(t)

	f := llmfactory.New(testConfig())
	model, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", model.GetName())
}

func TestDefaultModelNoProviders(t *testing.T) {
	overrideNewLLM(t)

	f := llmfactory.New(&llmfactory.Config{})
	_, err := f.DefaultModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers configured")
}

func TestModelByType(t *testing.T) {
	overrideNewLLM(t)

	f := llmfactory.New(testConfig())

	model, err := f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", model.GetName())

	// Repeated lookups hit the cache and return the same instance.
	again, err := f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	assert.Same(t, model, again)

	_, err = f.ModelByType("BEDROCK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider not found for type: BEDROCK")
}

func TestModelByName(t *testing.T) {
	overrideNewLLM(t)

	f := llmfactory.New(testConfig())

	model, err := f.ModelByName("gpt-4.1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", model.GetName())

	again, err := f.ModelByName("gpt-4.1")
	require.NoError(t, err)
	assert.Same(t, model, again)

	// Unknown names fall back to the default provider's model.
	model, err = f.ModelByName("mistral-large")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", model.GetName())
}

func TestAgentModel(t *testing.T) {
	overrideNewLLM(t)

	f := llmfactory.New(testConfig())

	model, err := f.AgentModel("biomcp")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", model.GetName())

	// Unmapped agents use the "default" mapping.
	model, err = f.AgentModel("summarizer")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", model.GetName())
}

func TestLoadConfig(t *testing.T) {
	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)

	file := filepath.Join(t.TempDir(), "llm.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
default_provider: openai
providers:
  - name: openai
    api_type: OPENAI
    token: ${OPENAI_API_KEY}
    default_model: gpt-4o-mini
    available_models:
      - gpt-4o-mini
agent_models:
  default:
    - gpt-4o-mini
`), 0o644))

	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err = llmfactory.LoadConfig(file)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "openai", cfg.Providers[0].Name)
	assert.Equal(t, "sk-test", cfg.Providers[0].Token)
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.AgentModels["default"])
}
