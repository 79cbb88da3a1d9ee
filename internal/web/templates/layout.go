package templates

import (
	"context"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.text(title)
		h.raw(`</title><link rel="stylesheet" href="/static/app.css"></head><body>`,
			`<header class="top"><a href="/">Data Sweeper</a>`,
			`<span>Transform CSV and Excel files with cleaning, charts and conversion</span></header>`,
			`<main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
	})
}

// ErrorAlert is the inline message shown next to whatever failed.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(` <span>`)
			h.text(action)
			h.raw(`</span>`)
		}
		if code != "" {
			h.raw(` <code>`)
			h.text(code)
			h.raw(`</code>`)
		}
		h.raw(`</div>`)
	})
}

// Notices lists pipeline step messages.
func Notices(notices []core.Notice) templ.Component {
	return component(func(_ context.Context, h *html) {
		if len(notices) == 0 {
			return
		}
		h.raw(`<ul class="notices">`)
		for _, n := range notices {
			h.raw(`<li class="alert alert-`)
			h.text(string(n.Level))
			h.raw(`">`)
			h.text(n.Message)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
	})
}

// ErrorPage is a full page for errors outside a file workspace.
func ErrorPage(msg core.UserMessage) templ.Component {
	return Layout("Error", component(func(ctx context.Context, h *html) {
		h.render(ctx, ErrorAlert(msg.Message, msg.Action, msg.Code))
		h.raw(`<p><a href="/">Back to uploads</a></p>`)
	}))
}
