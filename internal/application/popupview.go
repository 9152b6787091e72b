package application

import (
	"fmt"
	"strings"
)

// Markdown renders the view as a Markdown document for terminal and web
// front ends.
func (v PopupView) Markdown() string {
	var b strings.Builder

	b.WriteString("## Ignorerade användare\n\n")
	if len(v.Ignored) == 0 {
		b.WriteString("_Inga ignorerade användare._\n")
	}
	for _, u := range v.Ignored {
		fmt.Fprintf(&b, "- %s\n", escapeMarkdown(u))
	}

	b.WriteString("\n## Ignorerade i trådar\n\n")
	if len(v.LightIgnored) == 0 {
		b.WriteString("_Inga användare ignorerade i trådar._\n")
	}
	for _, g := range v.LightIgnored {
		fmt.Fprintf(&b, "### [%s](%s)\n\n", escapeMarkdown(string(g.ThreadKey)), g.ThreadURL)
		for _, u := range g.Users {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(u))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`,
	`[`, `\[`, `]`, `\]`, `<`, `\<`, `>`, `\>`,
	`#`, `\#`, `|`, `\|`,
)

// usernames are free text on the forum.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
