// Package render turns a selected message into the "on this day" memory
// card and its Matrix HTML / plaintext representations.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
)

// Card is the platform-neutral display artifact for one memory.
type Card struct {
	Title      string
	AuthorName string
	AuthorIcon string
	Body       string
	Footer     string
	FooterIcon string
	Link       string
	Color      string
	ImageURL   string // first attachment, if any
	Timestamp  time.Time
}

// BuildCard assembles the memory card for msg as seen from now.
func BuildCard(msg model.Message, now time.Time) Card {
	years := now.In(model.Location()).Year() - msg.Timestamp.Year()

	card := Card{
		Title:      fmt.Sprintf("On this day %d years ago, *%s* said", years, msg.Sender.Nickname),
		AuthorName: fmt.Sprintf("%s (%s)", msg.Sender.Nickname, msg.Sender.Username),
		AuthorIcon: msg.Sender.Avatar,
		Body:       msg.Content,
		Footer:     footer(msg),
		FooterIcon: msg.Channel.Icon,
		Link:       msg.Permalink(),
		Color:      msg.Sender.Color,
		Timestamp:  msg.Timestamp,
	}
	if len(msg.Attachments) > 0 {
		card.ImageURL = msg.Attachments[0].URL
	}
	return card
}

func footer(msg model.Message) string {
	if msg.IsDirect() {
		return "Messaged in " + msg.Channel.Name
	}
	return "Messaged in #" + msg.Channel.Name + " in " + msg.Channel.ServerName
}

// HTML renders the card as Matrix formatted-body HTML. The title keeps the
// *emphasis* of the original template as a real <em>.
func (c Card) HTML() string {
	title := html.EscapeString(c.Title)
	if i := strings.Index(title, "*"); i >= 0 {
		if j := strings.LastIndex(title, "*"); j > i {
			title = title[:i] + "<em>" + title[i+1:j] + "</em>" + title[j+1:]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong><a href=%q>%s</a></strong></p>", c.Link, title)
	fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(c.Body))
	if c.ImageURL != "" {
		fmt.Fprintf(&b, "<p><a href=%q>%s</a></p>", c.ImageURL, html.EscapeString(c.ImageURL))
	}
	fmt.Fprintf(&b, "<p><sub>%s · %s</sub></p>",
		html.EscapeString(c.Footer), c.Timestamp.Format("Jan 2 2006 3:04 PM"))
	return b.String()
}

// Plaintext renders the card as the fallback body for clients that do not
// support formatted messages.
func (c Card) Plaintext() string {
	var b strings.Builder
	b.WriteString(c.Title)
	b.WriteString("\n")
	b.WriteString(c.Body)
	b.WriteString("\n")
	if c.ImageURL != "" {
		b.WriteString(c.ImageURL)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s · %s\n%s", c.Footer, c.Timestamp.Format("Jan 2 2006 3:04 PM"), c.Link)
	return b.String()
}
