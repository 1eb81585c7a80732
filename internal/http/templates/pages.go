package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const emptyCell = "&mdash;"

// RosterPage renders every character as a row of an HTML table.
func RosterPage(data RosterPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var b strings.Builder
		writeHead(&b, data.Title)
		b.WriteString("<main><h1>")
		b.WriteString(templ.EscapeString(data.Title))
		b.WriteString("</h1>")

		if len(data.Characters) == 0 {
			b.WriteString(`<p class="empty">No characters have joined the roster yet.</p>`)
		} else {
			b.WriteString(`<table class="roster"><thead><tr>`)
			for _, heading := range []string{"ID", "Player", "Level", "Role", "Character", "Race", "Alignment"} {
				b.WriteString("<th>" + heading + "</th>")
			}
			b.WriteString("</tr></thead><tbody>")
			for _, character := range data.Characters {
				b.WriteString("<tr>")
				writeCell(&b, fmt.Sprintf("%d", character.ID))
				writeCell(&b, character.Owner)
				writeCell(&b, fmt.Sprintf("%d", character.Level))
				writeCell(&b, character.Role)
				writeCell(&b, character.CharacterName)
				writeCell(&b, character.Race)
				writeCell(&b, character.Alignment)
				b.WriteString("</tr>")
			}
			b.WriteString("</tbody></table>")
		}

		b.WriteString("</main></body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorPage renders a minimal error view with an escaped message.
func ErrorPage(data ErrorPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var b strings.Builder
		writeHead(&b, data.Title)
		b.WriteString("<main><h1>")
		b.WriteString(templ.EscapeString(data.StatusLabel))
		b.WriteString("</h1><p>")
		b.WriteString(templ.EscapeString(data.Message))
		b.WriteString("</p></main></body></html>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeHead(b *strings.Builder, title string) {
	b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
	b.WriteString(templ.EscapeString(title))
	b.WriteString("</title></head><body>")
}

func writeCell(b *strings.Builder, value string) {
	if value == "" {
		b.WriteString("<td>" + emptyCell + "</td>")
		return
	}
	b.WriteString("<td>" + templ.EscapeString(value) + "</td>")
}
