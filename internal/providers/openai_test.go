package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestChatStreamReassembly verifies that thinking, content and tool-call
// deltas split across stream chunks are reassembled into one response, and
// that chunks reach the callback in stream order.
func TestChatStreamReassembly(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"reasoning_content":"plan first. "}}]}`,
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"add_todo","arguments":"{\"item\":\"wr"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ite pitch\"}"}},{"index":1,"id":"call_2","function":{"name":"list_todos","arguments":"{}"}}]},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
	})

	p := NewOpenAIProvider(KindOllama, "", srv.URL, "gpt-oss:20b")
	var chunks []StreamChunk
	resp, err := p.ChatStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, func(c StreamChunk) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	if resp.Thinking != "plan first. " {
		t.Errorf("thinking = %q", resp.Thinking)
	}
	if resp.Content != "Hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(resp.ToolCalls))
	}
	first := resp.ToolCalls[0]
	if first.ID != "call_1" || first.Name != "add_todo" {
		t.Errorf("first call = %+v", first)
	}
	if item, _ := first.Arguments["item"].(string); item != "write pitch" {
		t.Errorf("reassembled arguments = %+v", first.Arguments)
	}
	second := resp.ToolCalls[1]
	if second.ID != "call_2" || second.Name != "list_todos" || len(second.Arguments) != 0 {
		t.Errorf("second call = %+v", second)
	}

	want := []StreamChunk{
		{Thinking: "plan first. "},
		{Content: "Hel"},
		{Content: "lo"},
		{Done: true},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(chunks), chunks, len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, chunks[i], want[i])
		}
	}
}

// TestChatStreamIncompleteToolArgs verifies that a stream that ends with a
// half-delivered arguments payload fails instead of producing a truncated
// call.
func TestChatStreamIncompleteToolArgs(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"add_todo","arguments":"{\"item\":"}}]}}]}`,
	})

	p := NewOpenAIProvider(KindOllama, "", srv.URL, "gpt-oss:20b")
	_, err := p.ChatStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, nil)
	if !errors.Is(err, ErrToolArgsIncomplete) {
		t.Errorf("got %v, want ErrToolArgsIncomplete", err)
	}
}

// TestChatRequestWireFormat verifies the non-streaming call and the OpenAI
// wire conversion: tool calls as type+function wrappers with string
// arguments, tool results carrying tool_call_id, and option passthrough.
func TestChatRequestWireFormat(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body not json: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"Done.","reasoning":"step by step"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(KindOllama, "", srv.URL, "gpt-oss:20b")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "add a todo"},
			{Role: "assistant", ToolCalls: []ToolCall{{
				ID:        "t1",
				Name:      "add_todo",
				Arguments: map[string]interface{}{"item": "x"},
			}}},
			{Role: "tool", Content: `{"ok":true}`, ToolCallID: "t1"},
		},
		Tools: []ToolDefinition{{
			Type:     "function",
			Function: ToolFunctionSchema{Name: "add_todo", Description: "adds"},
		}},
		Options: map[string]interface{}{OptMaxTokens: 256, OptTemperature: 0.2},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Done." || resp.Thinking != "step by step" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}

	if captured["model"] != "gpt-oss:20b" {
		t.Errorf("model = %v", captured["model"])
	}
	if captured["stream"] != false {
		t.Errorf("stream = %v", captured["stream"])
	}
	if captured["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v", captured["tool_choice"])
	}
	if captured["max_tokens"] != float64(256) || captured["temperature"] != 0.2 {
		t.Errorf("options = %v / %v", captured["max_tokens"], captured["temperature"])
	}

	msgs := captured["messages"].([]interface{})
	if len(msgs) != 4 {
		t.Fatalf("got %d wire messages, want 4", len(msgs))
	}
	assistant := msgs[2].(map[string]interface{})
	calls := assistant["tool_calls"].([]interface{})
	call := calls[0].(map[string]interface{})
	if call["type"] != "function" {
		t.Errorf("tool call type = %v", call["type"])
	}
	fn := call["function"].(map[string]interface{})
	if args, ok := fn["arguments"].(string); !ok || args != `{"item":"x"}` {
		t.Errorf("arguments = %v, want a json string", fn["arguments"])
	}
	toolMsg := msgs[3].(map[string]interface{})
	if toolMsg["tool_call_id"] != "t1" {
		t.Errorf("tool_call_id = %v", toolMsg["tool_call_id"])
	}
}

// TestChatHTTPError verifies that non-200 responses surface as HTTPError
// with the status preserved.
func TestChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(KindOllama, "", srv.URL, "gpt-oss:20b")
	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("got %v, want HTTPError", err)
	}
	if httpErr.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", httpErr.Status)
	}
}

// TestListModels verifies model id extraction from /v1/models.
func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"gpt-oss:20b"},{"id":"gpt-oss:120b"},{"id":""}]}`)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(KindOllama, "", srv.URL, "gpt-oss:20b")
	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "gpt-oss:20b" || models[1] != "gpt-oss:120b" {
		t.Errorf("models = %v", models)
	}
}

// TestBaseURLNormalization verifies that /v1 suffixes and trailing slashes
// collapse to one canonical base.
func TestBaseURLNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"http://127.0.0.1:11434/", "http://127.0.0.1:11434"},
		{"http://127.0.0.1:11434/v1", "http://127.0.0.1:11434"},
		{"http://127.0.0.1:11434/v1/", "http://127.0.0.1:11434"},
	}
	for _, tt := range tests {
		p := NewOpenAIProvider(KindOllama, "", tt.in, "m")
		if p.BaseURL() != tt.want {
			t.Errorf("base %q normalized to %q, want %q", tt.in, p.BaseURL(), tt.want)
		}
	}

	if p := NewOpenAIProvider(KindLMStudio, "", "", "m"); p.BaseURL() != "http://127.0.0.1:1234" {
		t.Errorf("lmstudio default base = %q", p.BaseURL())
	}
	if p := NewOpenAIProvider(KindOllama, "", "", "m"); p.BaseURL() != "http://127.0.0.1:11434" {
		t.Errorf("ollama default base = %q", p.BaseURL())
	}
}
