package capabilities

import "testing"

func TestNewRegistry_LoadsEmbeddedCatalog(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	models, err := registry.ListProviderModels("anthropic")
	if err != nil {
		t.Fatalf("ListProviderModels failed: %v", err)
	}
	if len(models) == 0 {
		t.Fatal("expected at least one anthropic model")
	}

	// Order must match the YAML file
	if models[0].ID != "claude-sonnet-4-5-20250929" {
		t.Errorf("expected sonnet first, got %s", models[0].ID)
	}
}

func TestGetModelCapabilities(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	caps, err := registry.GetModelCapabilities("anthropic", "claude-haiku-4-5-20251001")
	if err != nil {
		t.Fatalf("GetModelCapabilities failed: %v", err)
	}
	if !caps.SupportsTools {
		t.Error("expected haiku to support tools")
	}
	if caps.MaxOutput != 32000 {
		t.Errorf("expected max_output 32000, got %d", caps.MaxOutput)
	}

	if _, err := registry.GetModelCapabilities("anthropic", "nope"); err == nil {
		t.Error("expected error for unknown model")
	}
	if _, err := registry.GetModelCapabilities("openai", "gpt"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestMaxOutputFor_Fallback(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	if got := registry.MaxOutputFor("anthropic", "unknown-model"); got != DefaultMaxOutput {
		t.Errorf("expected fallback %d, got %d", DefaultMaxOutput, got)
	}
	if got := registry.MaxOutputFor("anthropic", "claude-sonnet-4-5-20250929"); got != 64000 {
		t.Errorf("expected 64000, got %d", got)
	}
}
