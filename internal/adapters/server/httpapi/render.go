package httpapi

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/editor"
)

// textareaCols is the rendered width used to size item rows.
const textareaCols = 60

// responseMode selects the representation written for one request.
type responseMode int

const (
	modeJSON responseMode = iota
	modeHTML
	modeDatastar
)

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"rows": func(text string) int { return editor.FitHeight(text, textareaCols, 1, 0) },
	"cols": func() int { return textareaCols },
}).Parse(`
{{- define "item" -}}
<li class="list-item{{if .Completed}} completed{{end}}" id="item-{{.ID}}" data-id="{{.ID}}" data-position="{{.Position}}"><input type="checkbox" name="completed" aria-label="Completed"{{if .Completed}} checked{{end}}><textarea name="txt" cols="{{cols}}" rows="{{rows .Text}}" aria-label="List item">{{.Text}}</textarea></li>
{{- end -}}
{{- define "list" -}}
<ul class="list" id="list-{{.List.ID}}" data-id="{{.List.ID}}" aria-label="{{.List.Name}}">{{range .Items}}{{template "item" .}}{{end}}</ul>
{{- end -}}
`))

// itemPayload is the JSON body for item mutations.
type itemPayload struct {
	Item    common.ItemView `json:"item"`
	HTML    string          `json:"html,omitempty"`
	Removed bool            `json:"removed,omitempty"`
}

// negotiate picks datastar SSE, an htmx fragment or JSON.
func negotiate(r *http.Request) responseMode {
	if isDatastarRequest(r) {
		return modeDatastar
	}
	if strings.EqualFold(strings.TrimSpace(r.Header.Get("HX-Request")), "true") {
		return modeHTML
	}
	accept := strings.ToLower(r.Header.Get("Accept"))
	switch {
	case strings.Contains(accept, "text/event-stream"):
		return modeDatastar
	case strings.Contains(accept, "text/html"):
		return modeHTML
	default:
		return modeJSON
	}
}

// isDatastarRequest reports the header datastar adds to its fetches.
func isDatastarRequest(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Datastar-Request")), "true")
}

// readSignals decodes datastar signals into out.
func readSignals(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	}
	if err := datastar.ReadSignals(r, out); err != nil {
		return fmt.Errorf("read datastar signals: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	return nil
}

// itemSelector is the element id of one rendered item.
func itemSelector(itemID string) string {
	return "#item-" + itemID
}

func renderItem(item common.ItemView) (string, error) {
	var b strings.Builder
	if err := fragments.ExecuteTemplate(&b, "item", item); err != nil {
		return "", fmt.Errorf("render item: %w", err)
	}
	return b.String(), nil
}

func renderList(view common.ListView) (string, error) {
	var b strings.Builder
	if err := fragments.ExecuteTemplate(&b, "list", view); err != nil {
		return "", fmt.Errorf("render list: %w", err)
	}
	return b.String(), nil
}

// patchElements streams one datastar element patch and logs write failures.
func (h *Handler) patchElements(w http.ResponseWriter, r *http.Request, html string, opts ...datastar.PatchElementOption) {
	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElements(html, opts...); err != nil {
		h.logger.Warn("datastar patch failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
}

// respondCreated writes the new item placed after its anchor.
func (h *Handler) respondCreated(w http.ResponseWriter, r *http.Request, afterItemID string, item common.ItemView) {
	html, err := renderItem(item)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	switch negotiate(r) {
	case modeDatastar:
		h.patchElements(w, r, html,
			datastar.WithSelector(itemSelector(afterItemID)),
			datastar.WithMode(datastar.ElementPatchModeAfter),
		)
	case modeHTML:
		writeHTML(w, http.StatusCreated, html)
	default:
		writeJSON(w, http.StatusCreated, itemPayload{Item: item, HTML: html})
	}
}

// respondUpdated writes the re-rendered item.
func (h *Handler) respondUpdated(w http.ResponseWriter, r *http.Request, item common.ItemView) {
	html, err := renderItem(item)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	switch negotiate(r) {
	case modeDatastar:
		h.patchElements(w, r, html,
			datastar.WithSelector(itemSelector(item.ID)),
			datastar.WithMode(datastar.ElementPatchModeOuter),
		)
	case modeHTML:
		writeHTML(w, http.StatusOK, html)
	default:
		writeJSON(w, http.StatusOK, itemPayload{Item: item, HTML: html})
	}
}

// respondDeleted writes the removal instruction. htmx gets an empty body for `swap: delete`.
func (h *Handler) respondDeleted(w http.ResponseWriter, r *http.Request, item common.ItemView) {
	switch negotiate(r) {
	case modeDatastar:
		h.patchElements(w, r, "",
			datastar.WithSelector(itemSelector(item.ID)),
			datastar.WithMode(datastar.ElementPatchModeRemove),
		)
	case modeHTML:
		writeHTML(w, http.StatusOK, "")
	default:
		writeJSON(w, http.StatusOK, itemPayload{Item: item, Removed: true})
	}
}

// respondList writes one full list.
func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, view common.ListView) {
	mode := negotiate(r)
	if mode == modeJSON {
		writeJSON(w, http.StatusOK, view)
		return
	}
	html, err := renderList(view)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if mode == modeDatastar {
		h.patchElements(w, r, html,
			datastar.WithSelector("#list-"+view.List.ID),
			datastar.WithMode(datastar.ElementPatchModeOuter),
		)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

// writeHTML writes one HTML fragment.
func writeHTML(w http.ResponseWriter, statusCode int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(html))
}
