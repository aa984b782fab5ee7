package llm

import "testing"

func TestStripFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  {\"ok\":true}  ", `{"ok":true}`},
		{"tag line", "```json\n{\"ok\":true}\n```", `{"ok":true}`},
		{"empty tag line", "```\n{\"ok\":true}\n```", `{"ok":true}`},
		{"tag on same line", "```json {\"ok\":true}```", `{"ok":true}`},
		{"tag glued to body", "```json{\"ok\":true}```", `{"ok":true}`},
		{"no tag single line", "```{\"ok\":true}```", `{"ok":true}`},
		{"markup after tag", "```html <p>x</p>```", "<p>x</p>"},
		{"prose keeps first word", "```Hello world```", "Hello world"},
		{"trailing only", "{\"ok\":true}\n```", `{"ok":true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripFence(tc.in); got != tc.want {
				t.Fatalf("StripFence(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
