package convai

import (
	"fmt"
	"strings"
)

// RenderTurns formats the turns of a round as a markdown table.
func RenderTurns(turns []Turn) string {
	var b strings.Builder
	b.WriteString("| chat | direction | sender | text | episode done |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, t := range turns {
		direction := "in"
		if t.Outbound {
			direction = "out"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %t |\n",
			t.Chat, direction, escapeCell(t.Message.ID), escapeCell(t.Message.Text), t.Message.EpisodeDone)
	}
	return b.String()
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}
