package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// readZip returns the archive entries by name, in archive order.
func readZip(t *testing.T, data []byte) (map[string]string, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	entries := make(map[string]string, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		entries[f.Name] = string(content)
		names = append(names, f.Name)
	}
	return entries, names
}

func (fx *apiFixture) exportPack(t *testing.T, sessionID string) (*http.Response, []byte) {
	t.Helper()
	form := url.Values{"session_id": {sessionID}}
	req, err := http.NewRequest(http.MethodPost, fx.base+"/api/export/submission-pack",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return fx.doRaw(t, req)
}

// TestExportPack verifies the download headers, the fixed entry set, and that
// stored state lands in the right entries.
func TestExportPack(t *testing.T) {
	fx := newAPIFixture(t, nil)
	ctx := context.Background()
	const sessionID = "sess-0123456789"

	if _, err := fx.stores.Messages.Append(ctx, sessionID, store.RoleUser, "we built a chatbot", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.stores.Artifacts.Put(ctx, sessionID, store.ArtifactProjectIdea, "A rules chatbot", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.stores.Todos.Add(ctx, sessionID, "record demo"); err != nil {
		t.Fatal(err)
	}

	resp, body := fx.exportPack(t, sessionID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="submission_pack_sess-012.zip"` {
		t.Errorf("content disposition = %q", cd)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("cache control = %q", cc)
	}

	entries, names := readZip(t, body)
	wantNames := []string{"idea.md", "tech_stack.md", "summary.md", "todos.json", "rules_ingested.txt", "session_metadata.json"}
	if len(names) != len(wantNames) {
		t.Fatalf("entries = %v", names)
	}
	for i, name := range wantNames {
		if names[i] != name {
			t.Fatalf("entry order = %v, want %v", names, wantNames)
		}
	}
	if entries["idea.md"] != "A rules chatbot\n" {
		t.Errorf("idea.md = %q", entries["idea.md"])
	}
	if !strings.Contains(entries["tech_stack.md"], "No tech stack generated yet") {
		t.Errorf("tech_stack.md = %q", entries["tech_stack.md"])
	}
	if !strings.Contains(entries["todos.json"], "record demo") {
		t.Errorf("todos.json = %q", entries["todos.json"])
	}

	var meta struct {
		SessionID    string `json:"session_id"`
		MessageCount int    `json:"message_count"`
		ModelID      string `json:"model_id"`
	}
	if err := json.Unmarshal([]byte(entries["session_metadata.json"]), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.SessionID != sessionID || meta.MessageCount != 1 || meta.ModelID != "gpt-oss:20b" {
		t.Errorf("metadata = %+v", meta)
	}

	// Unchanged session, identical bytes.
	_, again := fx.exportPack(t, sessionID)
	if !bytes.Equal(body, again) {
		t.Error("repeated export differs")
	}
}

// TestExportValidation verifies the missing-id and nothing-to-export
// rejections.
func TestExportValidation(t *testing.T) {
	fx := newAPIFixture(t, nil)

	resp, body := fx.exportPack(t, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank session = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(body), "session_id is required") {
		t.Errorf("blank session body = %s", body)
	}

	resp, body = fx.exportPack(t, "ghost")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("no artifacts = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(string(body), "No artifacts generated yet for this session") {
		t.Errorf("no artifacts body = %s", body)
	}
}
