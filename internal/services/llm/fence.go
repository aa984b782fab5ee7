package llm

import (
	"strings"
	"unicode"
)

const fence = "```"

// StripFence removes a code fence wrapped around a model reply. The opening
// fence may carry a language tag on its own line ("```json\n{...}") or on
// the same line as the body ("```json {...}```"). Text without fences is
// returned trimmed.
func StripFence(text string) string {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, fence) {
		body = dropLanguageTag(body[len(fence):])
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, fence)
	return strings.TrimSpace(body)
}

// dropLanguageTag strips the tag that may follow an opening fence. On a
// multi-line reply the whole first line is the tag when it is a single word.
// On a single line a leading word counts as a tag only when the body after it
// starts like JSON or markup.
func dropLanguageTag(rest string) string {
	end := 0
	for end < len(rest) && isTagByte(rest[end]) {
		end++
	}
	tag, after := rest[:end], rest[end:]

	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && strings.TrimSpace(rest[:nl]) == tag {
		return rest[nl+1:]
	}
	if tag == "" {
		return rest
	}
	remainder := strings.TrimLeftFunc(after, unicode.IsSpace)
	if remainder != "" && strings.ContainsRune("{[<", rune(remainder[0])) {
		return remainder
	}
	return rest
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '+' || b == '.'
}
