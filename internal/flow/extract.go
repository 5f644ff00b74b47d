package flow

import "encoding/json"

// FallbackAnswer is returned when no extractor finds answer text in the
// upstream reply. The chat turn still succeeds.
const FallbackAnswer = "No response received from the RAG system."

// extractor attempts to pull answer text from one known response shape.
// Returns false when the shape does not match or yields empty text.
type extractor func(doc map[string]interface{}) (string, bool)

// extractors are tried in priority order; the first non-empty match wins.
// The flow engine has changed its output envelope across versions, so every
// shape observed in the wild gets its own entry.
var extractors = []extractor{
	nestedOutputPath("results", "message", "text"),
	nestedOutputPath("results", "text"),
	nestedOutputPath("message", "text"),
	topLevelResult,
	topLevelText,
}

// ExtractAnswer walks the prioritized extractor list over a decoded upstream
// response. Never fails: when nothing matches it returns FallbackAnswer.
func ExtractAnswer(doc map[string]interface{}) string {
	for _, ex := range extractors {
		if text, ok := ex(doc); ok {
			return text
		}
	}
	return FallbackAnswer
}

// nestedOutputPath matches outputs[].outputs[].<path...> where the leaf is a
// string. Later inner outputs overwrite earlier ones, matching the upstream
// convention that the final component holds the chat answer.
func nestedOutputPath(path ...string) extractor {
	return func(doc map[string]interface{}) (string, bool) {
		outputs, ok := doc["outputs"].([]interface{})
		if !ok {
			return "", false
		}
		answer := ""
		for _, o := range outputs {
			outer, ok := o.(map[string]interface{})
			if !ok {
				continue
			}
			inner, ok := outer["outputs"].([]interface{})
			if !ok {
				continue
			}
			for _, i := range inner {
				node, ok := i.(map[string]interface{})
				if !ok {
					continue
				}
				if text, ok := stringAtPath(node, path); ok && text != "" {
					answer = text
				}
			}
		}
		return answer, answer != ""
	}
}

func topLevelResult(doc map[string]interface{}) (string, bool) {
	result, ok := doc["result"]
	if !ok || result == nil {
		return "", false
	}
	switch v := result.(type) {
	case string:
		return v, v != ""
	case map[string]interface{}:
		if text, ok := v["text"].(string); ok && text != "" {
			return text, true
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(raw), true
	default:
		return "", false
	}
}

func topLevelText(doc map[string]interface{}) (string, bool) {
	text, ok := doc["text"].(string)
	return text, ok && text != ""
}

func stringAtPath(node map[string]interface{}, path []string) (string, bool) {
	current := node
	for i, key := range path {
		if i == len(path)-1 {
			s, ok := current[key].(string)
			return s, ok
		}
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return "", false
		}
		current = next
	}
	return "", false
}
