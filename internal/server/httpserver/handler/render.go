package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/locale"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="error" style="white-space: pre-line">{{.Message}}</p>
{{- if .RequestID}}
<p class="request-id"><small>{{.RequestID}}</small></p>
{{- end}}
</body>
</html>
`))

type errorPageData struct {
	Lang      string
	Title     string
	Message   string
	RequestID string
}

// Renderer writes aborts as an HTML page or a JSON envelope.
type Renderer struct {
	locales locale.Provider
	logger  *slog.Logger
}

// NewRenderer creates a renderer. locales may be nil.
func NewRenderer(locales locale.Provider, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{locales: locales, logger: logger}
}

// Abort renders abort. loc may be nil, in which case the client's
// Accept-Language picks the language.
func (rd *Renderer) Abort(w http.ResponseWriter, r *http.Request, loc locale.Locale, abort *domain.Abort) {
	if loc == nil && rd.locales != nil {
		loc, _ = rd.locales.Get(r.Header.Get("Accept-Language"))
	}
	message := locale.Translate(loc, abort.Message)
	requestID := w.Header().Get("X-Request-ID")
	status := abort.StatusCode()

	if wantsJSON(r) {
		code := domain.GetErrorCode(abort)
		if code == "" {
			code = domain.ErrInternalServer.Code
		}
		w.Header().Set("X-Error-Code", code)
		rd.JSON(w, status, NewErrorResponse(requestID, code, message))
		return
	}

	data := errorPageData{
		Lang:      "en",
		Title:     locale.Translate(loc, locale.MsgError),
		Message:   message,
		RequestID: requestID,
	}
	if loc != nil {
		data.Lang = loc.Tag().String()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := errorPage.Execute(w, data); err != nil {
		rd.logger.Error("rendering error page failed", slog.Any("error", err))
	}
}

// Error renders any error, turning non-Abort errors into a generic abort.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, loc locale.Locale, err error) {
	var abort *domain.Abort
	if !errors.As(err, &abort) {
		abort = domain.NewAbort(locale.MsgError, err)
	}
	rd.Abort(w, r, loc, abort)
}

// JSON writes v with status.
func (rd *Renderer) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rd.logger.Error("encoding response failed", slog.Any("error", err))
	}
}

func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mt == "application/json" {
			return true
		}
	}
	return false
}
