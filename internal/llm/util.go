package llm

import "strings"

const (
	jsonOnlyInstruction  = "Respond with valid JSON only. Do not include explanations or markdown."
	plainTextInstruction = "Respond with plain text only. Do not use markdown, lists or headings."
)

// JSONOnly appends the JSON response framing to prompt.
func JSONOnly(prompt string) string {
	return strings.TrimRight(prompt, "\n") + "\n\n" + jsonOnlyInstruction
}

// PlainTextOnly appends the plain-text response framing to prompt.
func PlainTextOnly(prompt string) string {
	return strings.TrimRight(prompt, "\n") + "\n\n" + plainTextInstruction
}

// CleanJSONBlock strips code fences and any conversational text around the
// first JSON object or array in text.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Drop a language identifier on the fence line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			first := text[:idx]
			if len(first) < 20 && !strings.ContainsAny(first, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if extracted := extractBalanced(text[start:]); extracted != "" {
		return extracted
	}
	return text
}

// extractBalanced returns the leading JSON object or array of s, honoring
// string literals and escapes. It returns "" when s does not start with a
// bracket or the brackets never balance.
func extractBalanced(s string) string {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
