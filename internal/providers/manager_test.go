package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/store/storetest"
)

func modelsServer(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = fmt.Sprintf(`{"id":%q}`, id)
		}
		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(quoted, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// deadEndpoint is a closed port, so requests fail immediately without any
// network dependency.
const deadEndpoint = "http://127.0.0.1:1"

// TestManagerRestore verifies that persisted provider, endpoint and model
// selections survive a restart while junk values are ignored.
func TestManagerRestore(t *testing.T) {
	ctx := context.Background()
	st := storetest.Open(t)

	for k, v := range map[string]string{
		SettingProvider:     KindLMStudio,
		SettingBaseURL:      "http://10.0.0.5:1234/v1",
		SettingCurrentModel: "gpt-oss:120b",
	} {
		if err := st.Settings.Put(ctx, k, v); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	m := NewManager(st.Settings, KindOllama, "", "", "gpt-oss:20b")
	if m.Kind() != KindOllama || m.Model() != "gpt-oss:20b" {
		t.Fatalf("pre-restore state = %s/%s", m.Kind(), m.Model())
	}

	m.Restore(ctx)
	if m.Kind() != KindLMStudio {
		t.Errorf("kind = %q, want lmstudio", m.Kind())
	}
	if m.BaseURL() != "http://10.0.0.5:1234" {
		t.Errorf("base url = %q", m.BaseURL())
	}
	if m.Model() != "gpt-oss:120b" {
		t.Errorf("model = %q", m.Model())
	}

	// An unknown persisted kind must not take over the client.
	if err := st.Settings.Put(ctx, SettingProvider, "bedrock"); err != nil {
		t.Fatal(err)
	}
	m.Restore(ctx)
	if m.Kind() != KindLMStudio {
		t.Errorf("kind after junk restore = %q", m.Kind())
	}
}

// TestAvailableModels verifies prefix filtering and the offline fallbacks.
func TestAvailableModels(t *testing.T) {
	ctx := context.Background()
	st := storetest.Open(t)

	srv := modelsServer(t, "gpt-oss:20b", "llama3:8b", "openai/gpt-oss-20b")
	m := NewManager(st.Settings, KindOllama, srv.URL, "", "gpt-oss:20b")
	models, err := m.AvailableModels(ctx)
	if err != nil {
		t.Fatalf("AvailableModels: %v", err)
	}
	if len(models) != 2 || models[0] != "gpt-oss:20b" || models[1] != "openai/gpt-oss-20b" {
		t.Errorf("models = %v, want the non-instruct id filtered out", models)
	}

	// Nothing matching the prefixes: offer the stock pair.
	srv2 := modelsServer(t, "llama3:8b", "mistral:7b")
	m2 := NewManager(st.Settings, KindOllama, srv2.URL, "", "gpt-oss:20b")
	models, err = m2.AvailableModels(ctx)
	if err != nil || len(models) != 2 || models[0] != "gpt-oss:20b" {
		t.Errorf("fallback models = %v, err %v", models, err)
	}

	// Endpoint down: degrade to the configured default, with the error.
	m3 := NewManager(st.Settings, KindOllama, deadEndpoint, "", "gpt-oss:20b")
	models, err = m3.AvailableModels(ctx)
	if err == nil {
		t.Error("expected an error from a dead endpoint")
	}
	if len(models) != 1 || models[0] != "gpt-oss:20b" {
		t.Errorf("degraded models = %v", models)
	}
}

// TestSetModel verifies validation against the endpoint's list, persistence,
// and the offline path where validation is skipped.
func TestSetModel(t *testing.T) {
	ctx := context.Background()
	st := storetest.Open(t)
	srv := modelsServer(t, "gpt-oss:20b", "gpt-oss:120b")
	m := NewManager(st.Settings, KindOllama, srv.URL, "", "gpt-oss:20b")

	if err := m.SetModel(ctx, ""); !errors.Is(err, store.ErrValidation) {
		t.Errorf("empty model = %v, want validation error", err)
	}
	if err := m.SetModel(ctx, "llama3:8b"); !errors.Is(err, store.ErrValidation) {
		t.Errorf("unknown model = %v, want validation error", err)
	}

	if err := m.SetModel(ctx, "gpt-oss:120b"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if m.Model() != "gpt-oss:120b" {
		t.Errorf("model = %q", m.Model())
	}
	if v, err := st.Settings.Get(ctx, SettingCurrentModel); err != nil || v != "gpt-oss:120b" {
		t.Errorf("persisted model = %q, err %v", v, err)
	}

	// With the endpoint unreachable the list cannot be checked; the switch
	// still goes through so the app can be configured before the model host
	// is up.
	offline := NewManager(st.Settings, KindOllama, deadEndpoint, "", "gpt-oss:20b")
	if err := offline.SetModel(ctx, "gpt-oss:120b"); err != nil {
		t.Errorf("offline SetModel = %v, want success", err)
	}
}

// TestSetProvider verifies kind validation, default endpoint resolution and
// persistence.
func TestSetProvider(t *testing.T) {
	ctx := context.Background()
	st := storetest.Open(t)
	m := NewManager(st.Settings, KindOllama, "", "", "gpt-oss:20b")

	if err := m.SetProvider(ctx, "bedrock", ""); !errors.Is(err, store.ErrValidation) {
		t.Errorf("bad kind = %v, want validation error", err)
	}

	if err := m.SetProvider(ctx, KindLMStudio, ""); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}
	if m.Kind() != KindLMStudio || m.BaseURL() != "http://127.0.0.1:1234" {
		t.Errorf("state = %s @ %s", m.Kind(), m.BaseURL())
	}
	if v, _ := st.Settings.Get(ctx, SettingProvider); v != KindLMStudio {
		t.Errorf("persisted provider = %q", v)
	}
	if v, _ := st.Settings.Get(ctx, SettingBaseURL); v != "http://127.0.0.1:1234" {
		t.Errorf("persisted base url = %q", v)
	}

	if err := m.SetProvider(ctx, KindOllama, "http://10.1.1.1:11434"); err != nil {
		t.Fatalf("SetProvider custom: %v", err)
	}
	if m.BaseURL() != "http://10.1.1.1:11434" {
		t.Errorf("custom base url = %q", m.BaseURL())
	}
}

// TestManagerStatus verifies the connected, HTTP-error and unreachable
// endpoint reports.
func TestManagerStatus(t *testing.T) {
	ctx := context.Background()
	st := storetest.Open(t)

	srv := modelsServer(t, "gpt-oss:20b")
	m := NewManager(st.Settings, KindOllama, srv.URL, "", "gpt-oss:20b")
	status := m.Status(ctx)
	if !status.Connected || status.Error != "" {
		t.Errorf("status = %+v, want connected", status)
	}
	if status.Provider != KindOllama || status.Model != "gpt-oss:20b" {
		t.Errorf("status identity = %+v", status)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)
	m2 := NewManager(st.Settings, KindOllama, failing.URL, "", "gpt-oss:20b")
	status = m2.Status(ctx)
	if status.Connected {
		t.Error("500 endpoint reported connected")
	}
	if status.Error != "endpoint returned HTTP 500" {
		t.Errorf("error = %q", status.Error)
	}

	m3 := NewManager(st.Settings, KindOllama, deadEndpoint, "", "gpt-oss:20b")
	status = m3.Status(ctx)
	if status.Connected || status.Error == "" {
		t.Errorf("dead endpoint status = %+v", status)
	}
	if len(status.AvailableModels) != 1 || status.AvailableModels[0] != "gpt-oss:20b" {
		t.Errorf("degraded models = %v", status.AvailableModels)
	}
}
