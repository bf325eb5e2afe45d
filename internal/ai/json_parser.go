package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Models are told to answer with bare JSON but still wrap it in code
// fences, prose, or sloppy syntax often enough that parsing needs to be
// lenient. Parse tries progressively more tolerant strategies; regexes
// are pre-compiled since parsing runs on every model response.
var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json|javascript|js)?\\s*\\n?([\\s\\S]*?)\\n?```")

	trailingCommaRegex     = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRegex       = regexp.MustCompile(`([{,]\s*)([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)
	singleLineCommentRegex = regexp.MustCompile(`(?m)//.*$`)
	multiLineCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// Greedy so nested structures are captured whole.
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// Parse decodes a value of type T from raw model output. Strategies, in
// order: direct decode, code fence removal, syntax cleanup (trailing
// commas, unquoted keys, comments), then extraction of the outermost
// JSON object or array from surrounding prose.
func Parse[T any](text string) (T, error) {
	var zero T
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("empty response")
	}

	if v, err := decode[T](trimmed); err == nil {
		return v, nil
	} else {
		slog.Debug("direct JSON decode failed, trying recovery",
			"error", err,
			"preview", truncate(trimmed, 100))
	}

	unfenced := stripCodeFences(trimmed)
	if unfenced != trimmed {
		if v, err := decode[T](unfenced); err == nil {
			return v, nil
		}
	}

	cleaned := cleanupJSON(unfenced)
	if cleaned != unfenced {
		if v, err := decode[T](cleaned); err == nil {
			return v, nil
		}
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if v, err := decode[T](extracted); err == nil {
			return v, nil
		}
		if v, err := decode[T](cleanupJSON(extracted)); err == nil {
			return v, nil
		}
	}

	return zero, fmt.Errorf("no valid JSON found in response: %s", truncate(trimmed, 200))
}

func decode[T any](text string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}

// stripCodeFences removes markdown code fences, keeping their content.
func stripCodeFences(text string) string {
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// cleanupJSON fixes the syntax mistakes models make most: trailing
// commas, unquoted keys, and JavaScript-style comments.
func cleanupJSON(text string) string {
	s := singleLineCommentRegex.ReplaceAllString(text, "")
	s = multiLineCommentRegex.ReplaceAllString(s, "")
	s = trailingCommaRegex.ReplaceAllString(s, "$1")
	s = unquotedKeyRegex.ReplaceAllString(s, `$1"$2":`)
	return strings.TrimSpace(s)
}

// extractJSON pulls the outermost object or array out of surrounding
// prose. The first-character check keeps already-bare JSON untouched.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	if m := objectRegex.FindString(trimmed); m != "" {
		return m
	}
	return arrayRegex.FindString(trimmed)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
