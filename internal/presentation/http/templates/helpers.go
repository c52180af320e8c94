package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// RawHTML returns a templ component that writes the provided HTML without escaping.
func RawHTML(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.WriteString(w, html)
		return err
	})
}

// markup accumulates the first write error so views can be written as a
// flat sequence of calls.
type markup struct {
	w   io.Writer
	err error
}

func (m *markup) raw(s string) {
	if m.err != nil {
		return
	}
	_, m.err = io.WriteString(m.w, s)
}

func (m *markup) text(s string) {
	m.raw(templ.EscapeString(s))
}

func (m *markup) number(n int) {
	m.raw(strconv.Itoa(n))
}

func (m *markup) link(href, label, class string) {
	m.raw(`<a href="`)
	m.text(href)
	m.raw(`"`)
	if class != "" {
		m.raw(` class="`)
		m.text(class)
		m.raw(`"`)
	}
	m.raw(`>`)
	m.text(label)
	m.raw(`</a>`)
}

func (m *markup) component(ctx context.Context, c templ.Component) {
	if m.err != nil || c == nil {
		return
	}
	m.err = c.Render(ctx, m.w)
}

func view(fn func(ctx context.Context, m *markup)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m := &markup{w: w}
		fn(ctx, m)
		return m.err
	})
}
