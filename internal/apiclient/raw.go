package apiclient

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// Raw is an unprocessed response body, used for file downloads and for
// responses that are not a JSON envelope.
type Raw struct {
	Status      int
	ContentType string
	Filename    string
	Header      http.Header
	Body        []byte
}

func newRaw(w *wireResponse) *Raw {
	return &Raw{
		Status:      w.status,
		ContentType: w.header.Get("Content-Type"),
		Filename:    filenameFrom(w.header.Get("Content-Disposition")),
		Header:      w.header,
		Body:        w.body,
	}
}

func filenameFrom(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}
