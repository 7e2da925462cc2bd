package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// App setting keys for the persisted provider selection.
const (
	SettingCurrentModel = "current_model"
	SettingProvider     = "llm_provider"
	SettingBaseURL      = "llm_base_url"
)

// Model ids surfaced to the UI. Endpoints can host many models; only the
// instruct-tuned ones the app is prompted for are offered.
var modelPrefixes = []string{"gpt-oss", "openai/"}

var fallbackModels = []string{"gpt-oss:20b", "gpt-oss:120b"}

// Status describes the current provider connection.
type Status struct {
	Connected       bool     `json:"connected"`
	Provider        string   `json:"provider"`
	BaseURL         string   `json:"base_url"`
	Model           string   `json:"model"`
	AvailableModels []string `json:"available_models"`
	Error           string   `json:"error,omitempty"`
}

// Manager owns the active provider client and the model selection,
// persisting both so they survive restarts.
type Manager struct {
	mu       sync.RWMutex
	settings store.SettingStore

	kind         string
	baseURL      string
	apiKey       string
	model        string
	defaultModel string
	client       *OpenAIProvider
}

// NewManager builds a manager from the configured defaults. Call Restore to
// overlay any persisted selection.
func NewManager(settings store.SettingStore, kind, baseURL, apiKey, defaultModel string) *Manager {
	m := &Manager{
		settings:     settings,
		kind:         kind,
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: defaultModel,
	}
	m.client = NewOpenAIProvider(m.kind, m.apiKey, m.baseURL, m.defaultModel)
	return m
}

// Restore overlays the persisted provider/model selection, if any.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, err := m.settings.Get(ctx, SettingProvider); err == nil && validKind(v) {
		m.kind = v
	}
	if v, err := m.settings.Get(ctx, SettingBaseURL); err == nil && v != "" {
		m.baseURL = v
	}
	if v, err := m.settings.Get(ctx, SettingCurrentModel); err == nil && v != "" {
		m.model = v
	}
	m.client = NewOpenAIProvider(m.kind, m.apiKey, m.baseURL, m.defaultModel)
}

// Provider returns the active client.
func (m *Manager) Provider() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Model returns the active model id.
func (m *Manager) Model() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.model != "" {
		return m.model
	}
	return m.defaultModel
}

// Kind returns the active provider kind.
func (m *Manager) Kind() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kind
}

// BaseURL returns the active endpoint, resolved against kind defaults.
func (m *Manager) BaseURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client.BaseURL()
}

// AvailableModels lists model ids the UI may offer. Endpoint errors degrade
// to the configured default so the app stays usable offline.
func (m *Manager) AvailableModels(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	client := m.client
	def := m.defaultModel
	m.mu.RUnlock()

	ids, err := client.ListModels(ctx)
	if err != nil {
		return []string{def}, err
	}

	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		for _, prefix := range modelPrefixes {
			if strings.HasPrefix(id, prefix) {
				filtered = append(filtered, id)
				break
			}
		}
	}
	if len(filtered) == 0 {
		filtered = append(filtered, fallbackModels...)
	}
	return filtered, nil
}

// SetModel switches the active model after validating it against the
// endpoint's model list, then persists the choice.
func (m *Manager) SetModel(ctx context.Context, model string) error {
	if model == "" {
		return store.Validationf("model must not be empty")
	}

	available, err := m.AvailableModels(ctx)
	if err == nil {
		found := false
		for _, id := range available {
			if id == model {
				found = true
				break
			}
		}
		if !found {
			return store.Validationf("model %q not in available models %v", model, available)
		}
	}

	if err := m.settings.Put(ctx, SettingCurrentModel, model); err != nil {
		return fmt.Errorf("persist model: %w", err)
	}

	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
	return nil
}

// SetProvider switches the provider kind and endpoint, then persists both.
// An empty baseURL selects the kind's default endpoint.
func (m *Manager) SetProvider(ctx context.Context, kind, baseURL string) error {
	if !validKind(kind) {
		return store.Validationf("provider %q not supported (ollama, lmstudio)", kind)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL(kind)
	}

	if err := m.settings.Put(ctx, SettingProvider, kind); err != nil {
		return fmt.Errorf("persist provider: %w", err)
	}
	if err := m.settings.Put(ctx, SettingBaseURL, baseURL); err != nil {
		return fmt.Errorf("persist base url: %w", err)
	}

	m.mu.Lock()
	m.kind = kind
	m.baseURL = baseURL
	m.client = NewOpenAIProvider(m.kind, m.apiKey, m.baseURL, m.defaultModel)
	m.mu.Unlock()
	return nil
}

// Status probes the endpoint and reports the connection state.
func (m *Manager) Status(ctx context.Context) Status {
	st := Status{
		Provider: m.Kind(),
		BaseURL:  m.BaseURL(),
		Model:    m.Model(),
	}

	models, err := m.AvailableModels(ctx)
	st.AvailableModels = models
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			st.Error = fmt.Sprintf("endpoint returned HTTP %d", he.Status)
		} else {
			st.Error = err.Error()
		}
		return st
	}
	st.Connected = true
	return st
}

func validKind(kind string) bool {
	return kind == KindOllama || kind == KindLMStudio
}
