package llmutils

import (
	"encoding/json"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"

	"github.com/effective-security/biomcp/pkg/llms"
)

// ToJSON returns compact JSON representation, or empty string on error.
func ToJSON(v any) string {
	js, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(js)
}

// ToJSONIndent returns indented JSON representation, or empty string on error.
func ToJSONIndent(v any) string {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(js)
}

// BackticksJSON wraps a JSON string in a fenced code block.
func BackticksJSON(js string) string {
	return "```json\n" + js + "\n```"
}

// TrimBackticks removes a fenced code block wrapper, if present.
func TrimBackticks(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseArgs decodes a model-supplied arguments string into a key→value map.
// Models occasionally emit slightly malformed JSON, so a lenient decoder is
// used. An empty string yields an empty map.
func ParseArgs(raw string) (map[string]any, error) {
	raw = TrimBackticks(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := ljson.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.WithMessage(err, "failed to parse tool arguments")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// CountMessagesContentSize returns the total content size of the messages in bytes.
func CountMessagesContentSize(messages []llms.Message) uint64 {
	var size uint64
	for _, m := range messages {
		size += uint64(len(m.GetContent()))
	}
	return size
}
