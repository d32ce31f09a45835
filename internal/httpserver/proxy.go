package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"studentinfo/sis-console/internal/apiclient"
)

const maxProxyBody = 10 << 20

// proxyHandler forwards /api/* through the API client so every call gets the
// session token, the refresh policy and the error mapping.
func proxyHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.API == nil {
			writeFailure(w, http.StatusServiceUnavailable, "api client unavailable", 0)
			return
		}
		target := strings.TrimPrefix(r.URL.EscapedPath(), "/api")
		if target == "" {
			target = "/"
		}

		params := r.URL.Query()
		params.Del("_t")
		opts := apiclient.RequestOptions{Params: params}
		if strings.Contains(r.Header.Get("Accept"), "application/octet-stream") {
			opts.ResponseType = apiclient.ResponseBinary
		}

		body, status, msg := proxyBody(r)
		if status != 0 {
			writeFailure(w, status, msg, 0)
			return
		}
		opts.Body = body

		resp, err := deps.API.Send(r.Context(), r.Method, target, opts)
		if r.Method != http.MethodGet {
			outcome, detail := "success", ""
			if err != nil {
				outcome, detail = "failed", err.Error()
			}
			auditReq(deps.Audit, r, actorOf(deps.Session), "api."+strings.ToLower(r.Method), target, outcome, detail)
		}
		if err != nil {
			status, code := statusOf(err)
			writeFailure(w, status, apiclient.MessageOf(err, "Request failed"), code)
			return
		}

		if resp.Raw != nil {
			writeRaw(w, resp.Raw)
			return
		}
		writeJSON(w, resp.Status, resp.Envelope)
	}
}

// proxyBody turns the incoming body into what the API client sends: a JSON
// document as is, or a multipart form as an Upload with its first file.
func proxyBody(r *http.Request) (any, int, string) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return uploadFromForm(r)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
	if err != nil {
		return nil, http.StatusBadRequest, "invalid request body"
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, 0, ""
	}
	if !json.Valid(trimmed) {
		return nil, http.StatusBadRequest, "request body must be json"
	}
	return json.RawMessage(trimmed), 0, ""
}

func uploadFromForm(r *http.Request) (any, int, string) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxProxyBody)
	if err := r.ParseMultipartForm(maxProxyBody); err != nil {
		return nil, http.StatusBadRequest, "invalid multipart body"
	}
	defer r.MultipartForm.RemoveAll()

	names := make([]string, 0, len(r.MultipartForm.File))
	for name, headers := range r.MultipartForm.File {
		if len(headers) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, http.StatusBadRequest, "multipart body has no file"
	}
	sort.Strings(names)
	header := r.MultipartForm.File[names[0]][0]
	f, err := header.Open()
	if err != nil {
		return nil, http.StatusBadRequest, "unreadable upload"
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, "unreadable upload"
	}

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return &apiclient.Upload{
		FieldName: names[0],
		FileName:  header.Filename,
		Content:   bytes.NewReader(content),
		Fields:    fields,
	}, 0, ""
}

func writeRaw(w http.ResponseWriter, raw *apiclient.Raw) {
	if raw.ContentType != "" {
		w.Header().Set("Content-Type", raw.ContentType)
	}
	if cd := raw.Header.Get("Content-Disposition"); cd != "" {
		w.Header().Set("Content-Disposition", cd)
	}
	w.WriteHeader(raw.Status)
	_, _ = w.Write(raw.Body)
}

// statusOf picks the HTTP status and business code to echo for a client error.
func statusOf(err error) (int, int) {
	var (
		be *apiclient.BusinessError
		ae *apiclient.AuthError
		pe *apiclient.PermissionError
		ve *apiclient.ValidationError
		se *apiclient.StatusError
		te *apiclient.TransportError
	)
	switch {
	case errors.As(err, &be):
		return be.Status, be.Code
	case errors.As(err, &ae):
		return http.StatusUnauthorized, 0
	case errors.As(err, &pe):
		return http.StatusForbidden, 0
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, 0
	case errors.As(err, &se):
		return se.Status, 0
	case errors.As(err, &te):
		if te.Kind == apiclient.TransportTimeout {
			return http.StatusGatewayTimeout, 0
		}
		return http.StatusBadGateway, 0
	case errors.Is(err, apiclient.ErrUnsupportedMethod):
		return http.StatusMethodNotAllowed, 0
	default:
		return http.StatusBadGateway, 0
	}
}
