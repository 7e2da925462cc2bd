package tools

import "encoding/json"

// Result is the outcome of a tool execution. Tools report failures through
// Error rather than Go errors so the model always receives a well-formed
// result object.
type Result struct {
	OK     bool
	Fields map[string]interface{}
	Error  string
}

// NewResult creates a successful result carrying the given fields.
func NewResult(fields map[string]interface{}) *Result {
	return &Result{OK: true, Fields: fields}
}

// ErrorResult creates a failed result with an error message.
func ErrorResult(message string) *Result {
	return &Result{Error: message}
}

// ForLLM renders the result as the JSON object fed back to the model:
// the fields plus "ok", with "error" present only on failure.
func (r *Result) ForLLM() string {
	payload := make(map[string]interface{}, len(r.Fields)+2)
	for k, v := range r.Fields {
		payload[k] = v
	}
	payload["ok"] = r.OK
	if r.Error != "" {
		payload["error"] = r.Error
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"ok":false,"error":"unserializable tool result"}`
	}
	return string(data)
}

// stringArg fetches a string argument, tolerating missing or mistyped values.
func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// boolArg fetches a bool argument, tolerating missing or mistyped values.
func boolArg(args map[string]interface{}, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// objectSchema builds the JSON schema object for a tool's parameters.
func objectSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
