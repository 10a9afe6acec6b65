package config

import "strings"

// Keys whose values are masked by ListValues and never echoed by set.
var secretKeys = map[string]bool{
	"llm.api_key":    true,
	"brave.api_key":  true,
	"telegram.token": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Flatten turns nested objects into dot keys:
// {"stub": {"latency_ms": 1500}} becomes {"stub.latency_ms": 1500}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten rebuilds the nested form of a Flatten result. A scalar sitting
// where a deeper key needs an object is replaced by that object.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		setPath(out, key, v)
	}
	return out
}

func setPath(node map[string]any, key string, v any) {
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		node[head] = v
		return
	}
	child, ok := node[head].(map[string]any)
	if !ok {
		child = make(map[string]any)
		node[head] = child
	}
	setPath(child, rest, v)
}

// MaskSecrets copies flat with non-empty secrets reduced to "***" and their
// last four characters.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && s != "" && secretKeys[k] {
			v = "***" + s[max(len(s)-4, 0):]
		}
		out[k] = v
	}
	return out
}
