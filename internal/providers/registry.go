package providers

import (
	"fmt"
	"os"
	"strings"
)

// ProviderSpec describes a known LLM backend: how to recognize it from a
// model name and where its key and endpoint come from.
type ProviderSpec struct {
	Name           string
	Keywords       []string // model name keywords for matching
	EnvKey         string   // environment variable for API key
	DefaultAPIBase string   // default base URL, empty for SDK default
	Native         bool     // uses the Anthropic SDK instead of the OpenAI-compatible client
	KeyOptional    bool     // local backends run without a key
}

// Known is the registry of backends tickbot ships with.
var Known = []ProviderSpec{
	{Name: "anthropic", Keywords: []string{"claude", "anthropic"}, EnvKey: "ANTHROPIC_API_KEY", Native: true},
	{Name: "openai", Keywords: []string{"gpt", "o1", "o3", "chatgpt"}, EnvKey: "OPENAI_API_KEY"},
	{Name: "deepseek", Keywords: []string{"deepseek"}, EnvKey: "DEEPSEEK_API_KEY", DefaultAPIBase: "https://api.deepseek.com/v1"},
	{Name: "groq", Keywords: []string{"groq", "llama"}, EnvKey: "GROQ_API_KEY", DefaultAPIBase: "https://api.groq.com/openai/v1"},
	{Name: "ollama", Keywords: []string{"ollama"}, DefaultAPIBase: "http://localhost:11434/v1", KeyOptional: true},
	{Name: "custom", KeyOptional: true},
}

// FindByModel matches a model name against Keywords, returning the first hit.
func FindByModel(model string) *ProviderSpec {
	lower := strings.ToLower(model)
	for i := range Known {
		for _, kw := range Known[i].Keywords {
			if strings.Contains(lower, kw) {
				return &Known[i]
			}
		}
	}
	return nil
}

// FindByName returns the provider spec with an exact name match.
func FindByName(name string) *ProviderSpec {
	for i := range Known {
		if Known[i].Name == name {
			return &Known[i]
		}
	}
	return nil
}

// New builds a Provider. name may be empty, in which case the backend is
// inferred from the model keywords. An empty apiKey falls back to the
// backend's environment variable.
func New(name, apiKey, baseURL, defaultModel string) (Provider, error) {
	spec := FindByName(name)
	if spec == nil {
		spec = FindByModel(defaultModel)
	}
	if spec == nil {
		return nil, fmt.Errorf("no provider matches name %q or model %q", name, defaultModel)
	}

	if apiKey == "" && spec.EnvKey != "" {
		apiKey = os.Getenv(spec.EnvKey)
	}
	if apiKey == "" && !spec.KeyOptional {
		return nil, fmt.Errorf("provider %q needs an API key (config or %s)", spec.Name, spec.EnvKey)
	}

	if spec.Native {
		return NewAnthropicProvider(apiKey), nil
	}
	if baseURL == "" {
		baseURL = spec.DefaultAPIBase
	}
	return NewOpenAICompatProvider(apiKey, baseURL, defaultModel), nil
}
