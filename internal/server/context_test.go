package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

type contextStatusBody struct {
	SessionID string `json:"session_id"`
	Ready     bool   `json:"ready"`
	Building  bool   `json:"building"`
	NChunks   int    `json:"n_chunks"`
	RulesHash string `json:"rules_hash"`
}

type contextListBody struct {
	Items  []store.ContextRow `json:"items"`
	Chunks int                `json:"chunks"`
}

// waitReady polls the status route until the session's index reports ready.
func (fx *apiFixture) waitReady(t *testing.T, sessionID string) contextStatusBody {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var st contextStatusBody
		fx.getJSON(t, "/api/context/status?session_id="+sessionID, &st)
		if st.Ready {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("index for %q never became ready", sessionID)
	return contextStatusBody{}
}

// TestAddTextBuildsIndex verifies pasted text becomes an active context row
// and the retrieval index rebuilds to ready.
func TestAddTextBuildsIndex(t *testing.T) {
	fx := newAPIFixture(t, nil)

	var st contextStatusBody
	fx.getJSON(t, "/api/context/status?session_id=s1", &st)
	if st.Ready || st.Building || st.NChunks != 0 {
		t.Fatalf("fresh status = %+v, want empty", st)
	}

	var added okBody
	status := fx.postForm(t, "/api/context/add-text",
		url.Values{"session_id": {"s1"}, "text": {"alpha rules\n\nbravo rules"}}, &added)
	if status != http.StatusOK || !added.OK {
		t.Fatalf("add-text: status %d, body %+v", status, added)
	}

	st = fx.waitReady(t, "s1")
	if st.SessionID != "s1" || st.NChunks != 2 || st.RulesHash == "" {
		t.Errorf("ready status = %+v, want 2 chunks with a hash", st)
	}

	var list contextListBody
	fx.getJSON(t, "/api/context/list?session_id=s1", &list)
	if len(list.Items) != 1 || list.Items[0].Source != store.SourceText {
		t.Fatalf("context list = %+v", list)
	}
	if list.Chunks != 2 {
		t.Errorf("list chunks = %d, want 2", list.Chunks)
	}
}

// TestAddTextEmpty verifies whitespace-only text is rejected before any
// write.
func TestAddTextEmpty(t *testing.T) {
	fx := newAPIFixture(t, nil)

	var e errBody
	status := fx.postForm(t, "/api/context/add-text",
		url.Values{"session_id": {"s1"}, "text": {"   "}}, &e)
	if status != http.StatusBadRequest {
		t.Fatalf("empty text status = %d, want 400", status)
	}
	if e.Error != "Empty text" {
		t.Errorf("empty text error = %q", e.Error)
	}
}

// TestAddTextFetchesURL verifies a bare URL pasted as text is fetched and
// stored with citation framing.
func TestAddTextFetchesURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("remote rule text here"))
	}))
	defer upstream.Close()

	fx := newAPIFixture(t, nil)
	var added okBody
	status := fx.postForm(t, "/api/context/add-text",
		url.Values{"session_id": {"s2"}, "text": {upstream.URL}}, &added)
	if status != http.StatusOK || !added.OK {
		t.Fatalf("add url: status %d, body %+v", status, added)
	}

	var list contextListBody
	fx.getJSON(t, "/api/context/list?session_id=s2", &list)
	if len(list.Items) != 1 {
		t.Fatalf("context list = %+v", list)
	}
	row := list.Items[0]
	if row.Source != store.SourceURL || row.Filename != upstream.URL {
		t.Errorf("url row = %+v", row)
	}
	if !strings.Contains(row.Content, "remote rule text here") || !strings.Contains(row.Content, "[URL:") {
		t.Errorf("url content = %q", row.Content)
	}
}

// TestAddTextURLFailureLeavesStoreClean verifies a dead URL surfaces as a
// gateway error and writes nothing.
func TestAddTextURLFailureLeavesStoreClean(t *testing.T) {
	fx := newAPIFixture(t, nil)

	var e errBody
	status := fx.postForm(t, "/api/context/add-text",
		url.Values{"session_id": {"s3"}, "text": {"http://127.0.0.1:1/rules"}}, &e)
	if status != http.StatusBadGateway {
		t.Fatalf("dead url status = %d, want 502 (error %q)", status, e.Error)
	}

	var list contextListBody
	fx.getJSON(t, "/api/context/list?session_id=s3", &list)
	if len(list.Items) != 0 {
		t.Errorf("context rows after failed fetch = %+v", list.Items)
	}
}

// TestUploadRules verifies the rules file upload route stores the document
// and rebuilds the index.
func TestUploadRules(t *testing.T) {
	fx := newAPIFixture(t, nil)

	var added okBody
	status := fx.postMultipart(t, "/api/context/rules",
		url.Values{"session_id": {"s4"}}, &added,
		formFile{field: "file", name: "rules.md", data: "- no cloud apis\n\n- demo under 3 min"})
	if status != http.StatusOK || !added.OK {
		t.Fatalf("upload: status %d, body %+v", status, added)
	}

	st := fx.waitReady(t, "s4")
	if st.NChunks != 2 {
		t.Errorf("chunks = %d, want 2", st.NChunks)
	}

	var list contextListBody
	fx.getJSON(t, "/api/context/list?session_id=s4", &list)
	if len(list.Items) != 1 || list.Items[0].Source != store.SourceFile || list.Items[0].Filename != "rules.md" {
		t.Errorf("file row = %+v", list.Items)
	}
}

// TestUploadRulesValidation verifies the upload rejection paths.
func TestUploadRulesValidation(t *testing.T) {
	fx := newAPIFixture(t, nil)

	var e errBody
	status := fx.postMultipart(t, "/api/context/rules",
		url.Values{"session_id": {"s5"}}, &e)
	if status != http.StatusBadRequest || !strings.Contains(e.Error, "file is required") {
		t.Errorf("missing file: status %d, error %q", status, e.Error)
	}

	status = fx.postMultipart(t, "/api/context/rules",
		url.Values{"session_id": {"s5"}}, &e,
		formFile{field: "file", name: "tool.exe", data: "MZ\x90\x00"})
	if status != http.StatusUnsupportedMediaType {
		t.Errorf("exe upload: status %d, want 415 (error %q)", status, e.Error)
	}

	var list contextListBody
	fx.getJSON(t, "/api/context/list?session_id=s5", &list)
	if len(list.Items) != 0 {
		t.Errorf("context rows after rejections = %+v", list.Items)
	}
}
