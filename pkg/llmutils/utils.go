package llmutils

import (
	"bytes"
	"encoding/json"
	"maps"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// CleanJSON returns the JSON object or array found in bs,
// tool arguments produced by a model may arrive wrapped in prose or backticks,
// e.g. `Here you go: {json}`
func CleanJSON(bs []byte) []byte {
	bs = BytesTrimBackticks(bytes.TrimSpace(bs))
	start := bytes.IndexAny(bs, "{[")
	if start == -1 {
		return bs
	}
	end := max(bytes.LastIndexByte(bs, '}'), bytes.LastIndexByte(bs, ']'))
	if end < start {
		return bs[start:]
	}
	return bs[start : end+1]
}

var backtick = []byte("```")

// BytesTrimBackticks removes ```json or ``` fences
func BytesTrimBackticks(bs []byte) []byte {
	startIndex := bytes.Index(bs, backtick)
	if startIndex == -1 {
		return bs
	}
	startIndex += len(backtick)

	for i := startIndex; i < len(bs) && bs[i] != '{' && bs[i] != '['; i++ {
		if bs[i] == '\n' {
			startIndex = i + 1
			break
		}
	}

	content := bs[startIndex:]
	endIndex := bytes.LastIndex(content, backtick)
	if endIndex == -1 {
		return content
	}
	return bytes.TrimSpace(content[:endIndex])
}

// StringUpto returns s truncated to max runes, with "..." appended when truncated
func StringUpto(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// ToJSON returns compact JSON, or empty string if val can't be encoded
func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

// ToJSONIndent returns indented JSON
func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

// ToYAML returns YAML
func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

// MergeInputs returns a new map with defaults overridden by inputs
func MergeInputs(defaults map[string]any, inputs map[string]any) map[string]any {
	res := make(map[string]any, len(defaults)+len(inputs))
	maps.Copy(res, defaults)
	maps.Copy(res, inputs)
	return res
}

// StringValue returns the value of key as a trimmed string
func StringValue(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(ToJSON(v))
	}
}
