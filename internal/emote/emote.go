// Package emote expands custom emote tokens in message content. The
// transform is pure and applied to the broadcast copy only; the room
// log keeps the raw content.
package emote

import "strings"

// Render replaces each ":name:" token whose name appears in emotes
// with an inline emote reference. Tokens not listed in emotes are left
// untouched, as is content without tokens.
func Render(content string, emotes []string) string {
	for _, name := range emotes {
		if name == "" {
			continue
		}
		token := ":" + name + ":"
		if !strings.Contains(content, token) {
			continue
		}
		content = strings.ReplaceAll(content, token, "!["+name+"](emote://"+name+")")
	}
	return content
}
