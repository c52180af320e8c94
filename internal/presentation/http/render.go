package http

import (
	"bytes"
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"wikihub/app/internal/presentation/http/templates"
)

const htmlContentType = "text/html; charset=utf-8"

type htmlResponse struct {
	Status             int
	ContentType        string           `header:"Content-Type"`
	Location           string           `header:"Location"`
	CacheControl       string           `header:"Cache-Control"`
	ContentDisposition string           `header:"Content-Disposition"`
	DetectContentType  string           `header:"Gitlab-Workhorse-Detect-Content-Type"`
	SetCookie          []stdhttp.Cookie `header:"Set-Cookie"`
	Body               []byte
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirectResponse(location string) *htmlResponse {
	return &htmlResponse{
		Status:   stdhttp.StatusFound,
		Location: location,
	}
}

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "error rendering component")
	}
	return buf.Bytes(), nil
}

// renderView renders body inside the shared layout.
func (s *Server) renderView(ctx context.Context, status int, layout templates.LayoutData, body templ.Component) *htmlResponse {
	rendered, err := renderComponent(ctx, templates.Layout(layout, body))
	if err != nil {
		s.recordError(ctx, err, "rendering view", logrus.Fields{"title": layout.Title})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page right now.")
	}
	return newHTMLResponse(status, rendered)
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) *htmlResponse {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	page := templates.Layout(
		templates.LayoutData{Title: label},
		templates.ErrorPage(templates.ErrorPageData{StatusLabel: label, Message: message}),
	)

	body, err := renderComponent(ctx, page)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>",
			templ.EscapeString(label), templ.EscapeString(message)))
		return newHTMLResponse(status, fallback)
	}

	return newHTMLResponse(status, body)
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		entry = entry.WithFields(callerFromContext(ctx).fields())
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
