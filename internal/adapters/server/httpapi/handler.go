// Package httpapi provides the list HTTP adapter mounted under `/{resource}`.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hylla/insync/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the list routes below the resource prefix.
type Handler struct {
	lists  common.ListService
	logger *log.Logger
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// createItemRequest is the POST `/list/item` payload.
type createItemRequest struct {
	AfterItemID string `json:"after_item_id"`
}

// updateItemRequest is the PUT `/list/item/{id}` payload.
type updateItemRequest struct {
	Text *string `json:"text"`
	Txt  *string `json:"txt"`
}

// completedRequest is the PATCH `/list/item/{id}/completed` payload. A missing field means open.
type completedRequest struct {
	Completed bool `json:"completed"`
}

// NewHandler constructs one HTTP adapter over a list service.
func NewHandler(lists common.ListService, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{lists: lists, logger: logger}
}

// ServeHTTP routes one request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.lists == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "list service is not configured",
		})
		return
	}

	path := normalizePath(r.URL.Path)
	switch {
	case path == "lists":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListLists(w, r)
	case path == "list/item":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCreateItem(w, r)
	default:
		if itemID, ok := resolveCompletedItemID(path); ok {
			if r.Method != http.MethodPatch {
				writeMethodNotAllowed(w, http.MethodPatch)
				return
			}
			h.handleSetCompleted(w, r, itemID)
			return
		}
		if itemID, ok := resolveItemID(path); ok {
			switch r.Method {
			case http.MethodDelete:
				h.handleDeleteItem(w, r, itemID)
			case http.MethodPut:
				h.handleUpdateItem(w, r, itemID)
			default:
				writeMethodNotAllowed(w, http.MethodDelete, http.MethodPut)
			}
			return
		}
		if ref, ok := resolveListRef(path); ok {
			if r.Method != http.MethodGet {
				writeMethodNotAllowed(w, http.MethodGet)
				return
			}
			h.handleGetList(w, r, ref)
			return
		}
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleListLists serves GET `/lists`.
func (h *Handler) handleListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.ListLists(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lists": lists,
	})
}

// handleGetList serves GET `/list/{ref}`.
func (h *Handler) handleGetList(w http.ResponseWriter, r *http.Request, ref string) {
	view, err := h.lists.GetList(r.Context(), ref)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.respondList(w, r, view)
}

// handleCreateItem serves POST `/list/item`.
func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeRequest(w, r, &req, func(form formValues) {
		req.AfterItemID = form.Get("after_item_id")
	}); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.AfterItemID = strings.TrimSpace(req.AfterItemID)
	if req.AfterItemID == "" {
		req.AfterItemID = strings.TrimSpace(r.URL.Query().Get("after_item_id"))
	}
	if req.AfterItemID == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "after_item_id is required",
		})
		return
	}

	item, err := h.lists.CreateItemAfter(r.Context(), req.AfterItemID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.respondCreated(w, r, req.AfterItemID, item)
}

// handleUpdateItem serves PUT `/list/item/{id}`.
func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request, itemID string) {
	var req updateItemRequest
	if err := decodeRequest(w, r, &req, func(form formValues) {
		if form.Has("txt") {
			txt := form.Get("txt")
			req.Txt = &txt
		}
	}); err != nil {
		writeErrorFrom(w, err)
		return
	}
	text := req.Text
	if text == nil {
		text = req.Txt
	}
	if text == nil {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "text is required",
			Hint:    "Send `txt` as a form field or `text` in a JSON body.",
		})
		return
	}

	item, err := h.lists.UpdateItemText(r.Context(), itemID, *text)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.respondUpdated(w, r, item)
}

// handleSetCompleted serves PATCH `/list/item/{id}/completed`.
func (h *Handler) handleSetCompleted(w http.ResponseWriter, r *http.Request, itemID string) {
	var req completedRequest
	if err := decodeRequest(w, r, &req, func(form formValues) {
		req.Completed = formBool(form.Get("completed"))
	}); err != nil {
		writeErrorFrom(w, err)
		return
	}
	item, err := h.lists.SetItemCompleted(r.Context(), itemID, req.Completed)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.respondUpdated(w, r, item)
}

// handleDeleteItem serves DELETE `/list/item/{id}`.
func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := h.lists.DeleteItem(r.Context(), itemID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.respondDeleted(w, r, item)
}

// resolveItemID parses `list/item/{id}` and returns `{id}`.
func resolveItemID(path string) (string, bool) {
	const prefix = "list/item/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(path, prefix))
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// resolveCompletedItemID parses `list/item/{id}/completed` and returns `{id}`.
func resolveCompletedItemID(path string) (string, bool) {
	const suffix = "/completed"
	if !strings.HasSuffix(path, suffix) {
		return "", false
	}
	return resolveItemID(strings.TrimSuffix(path, suffix))
}

// formBool reads an HTML checkbox or boolean form value. Unparseable values count as false.
func formBool(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "on") {
		return true
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// resolveListRef parses `list/{ref}` and returns `{ref}`.
func resolveListRef(path string) (string, bool) {
	const prefix = "list/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	ref := strings.TrimSpace(strings.TrimPrefix(path, prefix))
	if ref == "" || ref == "item" || strings.Contains(ref, "/") {
		return "", false
	}
	return ref, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
			Hint:    "A list always keeps at least one item.",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "request_canceled",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// formValues is the subset of url.Values used by form decoders.
type formValues interface {
	Get(string) string
	Has(string) bool
}

// decodeRequest decodes a form or JSON body. Datastar requests carry signals and are read leniently.
func decodeRequest(w http.ResponseWriter, r *http.Request, out any, fromForm func(formValues)) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("decode form body: %w", errors.Join(common.ErrInvalidRequest, err))
		}
		fromForm(r.PostForm)
		return nil
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		if err := r.ParseMultipartForm(maxRequestBodyBytes); err != nil {
			return fmt.Errorf("decode multipart body: %w", errors.Join(common.ErrInvalidRequest, err))
		}
		fromForm(r.PostForm)
		return nil
	}
	if isDatastarRequest(r) {
		return readSignals(w, r, out)
	}
	return decodeOptionalJSONBody(r.Context(), w, r, out)
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
