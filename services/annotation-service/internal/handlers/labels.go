package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/pipeline"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/policy"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/storage"
)

type LabelStore interface {
	Create(ctx context.Context, l *storage.Label) (string, error)
	Get(ctx context.Context, id string) (storage.Label, error)
	ListBySubject(ctx context.Context, subjectID string) ([]storage.Label, error)
	Delete(ctx context.Context, id string) error
}

type LabelHandler struct {
	dispatch *pipeline.Dispatcher
	repo     LabelStore
	policy   policy.Provider
	logger   *slog.Logger
	secret   string
}

func NewLabelHandler(dispatch *pipeline.Dispatcher, repo LabelStore, policyProvider policy.Provider, logger *slog.Logger, secret string) *LabelHandler {
	return &LabelHandler{
		dispatch: dispatch,
		repo:     repo,
		policy:   policyProvider,
		logger:   logger,
		secret:   secret,
	}
}

type createLabelCommand struct {
	pipeline.CommandBase
	subjectID string
	name      string
	colorHex  string
	shortcut  string
}

type createLabelRequest struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	ColorHex  string `json:"color_hex"`
	Shortcut  string `json:"shortcut"`
}

type labelItem struct {
	LabelID   string `json:"label_id"`
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	ColorHex  string `json:"color_hex"`
	Shortcut  string `json:"shortcut"`
}

func (h *LabelHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LabelHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createLabelRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.Name = strings.TrimSpace(req.Name)
	req.ColorHex = strings.TrimSpace(req.ColorHex)
	req.Shortcut = strings.TrimSpace(req.Shortcut)
	if req.SubjectID == "" || req.Name == "" {
		http.Error(w, "subject_id and name are required", http.StatusBadRequest)
		return
	}
	if req.ColorHex != "" && !validColorHex(req.ColorHex) {
		http.Error(w, "color_hex must look like #RRGGBB", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ok, err := h.policy.Allow(ctx, userID, "label:create", req.SubjectID)
	if err != nil {
		h.logger.Error("policy check failed", "action", "label:create", "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cmd := createLabelCommand{
		subjectID: req.SubjectID,
		name:      req.Name,
		colorHex:  req.ColorHex,
		shortcut:  req.Shortcut,
	}
	res, err := h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.Create(ctx, &storage.Label{
			SubjectID: cmd.subjectID,
			Name:      cmd.name,
			ColorHex:  cmd.colorHex,
			Shortcut:  cmd.shortcut,
		})
	})
	if err != nil {
		h.logger.Error("create label failed", "err", err)
		http.Error(w, "failed to create label", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"label_id": res.(string)})
}

type listLabelsQuery struct {
	subjectID string
}

func (h *LabelHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, err := authUserID(r, h.secret); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	subjectID := strings.TrimSpace(r.URL.Query().Get("subject_id"))
	if subjectID == "" {
		http.Error(w, "subject_id is required", http.StatusBadRequest)
		return
	}

	q := listLabelsQuery{subjectID: subjectID}
	res, err := h.dispatch.Dispatch(r.Context(), q, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.ListBySubject(ctx, q.subjectID)
	})
	if err != nil {
		h.logger.Error("list labels failed", "err", err)
		http.Error(w, "failed to list labels", http.StatusInternalServerError)
		return
	}

	labels := res.([]storage.Label)
	items := make([]labelItem, 0, len(labels))
	for _, l := range labels {
		items = append(items, labelItem{
			LabelID:   l.ID,
			SubjectID: l.SubjectID,
			Name:      l.Name,
			ColorHex:  l.ColorHex,
			Shortcut:  l.Shortcut,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type deleteLabelCommand struct {
	pipeline.CommandBase
	labelID string
}

func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		LabelID string `json:"label_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.LabelID = strings.TrimSpace(req.LabelID)
	if req.LabelID == "" {
		http.Error(w, "label_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ok, err := h.policy.Allow(ctx, userID, "label:delete", req.LabelID)
	if err != nil {
		h.logger.Error("policy check failed", "action", "label:delete", "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cmd := deleteLabelCommand{labelID: req.LabelID}
	_, err = h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return nil, h.repo.Delete(ctx, cmd.labelID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "label not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete label failed", "err", err)
		http.Error(w, "failed to delete label", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validColorHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
