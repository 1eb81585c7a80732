package http

import (
	"bytes"
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "rendering component")
	}
	return buf.Bytes(), nil
}

// renderPage renders component into an HTML response, falling back to a bare
// page when rendering fails.
func (s *Server) renderPage(ctx context.Context, status int, component templ.Component) (*htmlResponse, error) {
	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering page", logrus.Fields{"status": status})
		label := fmt.Sprintf("%d %s", stdhttp.StatusInternalServerError, stdhttp.StatusText(stdhttp.StatusInternalServerError))
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, errorFallbackMessage))
		return newHTMLResponse(stdhttp.StatusInternalServerError, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}
