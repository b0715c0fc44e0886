package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/pipeline"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/policy"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/storage"
)

type SubjectHandler struct {
	dispatch *pipeline.Dispatcher
	repo     SubjectStore
	policy   policy.Provider
	logger   *slog.Logger
	secret   string
}

func NewSubjectHandler(dispatch *pipeline.Dispatcher, repo SubjectStore, policyProvider policy.Provider, logger *slog.Logger, secret string) *SubjectHandler {
	return &SubjectHandler{
		dispatch: dispatch,
		repo:     repo,
		policy:   policyProvider,
		logger:   logger,
		secret:   secret,
	}
}

type createSubjectCommand struct {
	pipeline.CommandBase
	projectID   string
	name        string
	description string
}

type createSubjectRequest struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type subjectItem struct {
	SubjectID   string `json:"subject_id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func (h *SubjectHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SubjectHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createSubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ProjectID == "" || req.Name == "" {
		http.Error(w, "project_id and name are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ok, err := h.policy.Allow(ctx, userID, "subject:create", req.ProjectID)
	if err != nil {
		h.logger.Error("policy check failed", "action", "subject:create", "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cmd := createSubjectCommand{projectID: req.ProjectID, name: req.Name, description: strings.TrimSpace(req.Description)}
	res, err := h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.Create(ctx, &storage.Subject{
			ProjectID:   cmd.projectID,
			Name:        cmd.name,
			Description: cmd.description,
		})
	})
	if err != nil {
		h.logger.Error("create subject failed", "err", err)
		http.Error(w, "failed to create subject", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"subject_id": res.(string)})
}

type listSubjectsQuery struct {
	projectID string
}

func (h *SubjectHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, err := authUserID(r, h.secret); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		http.Error(w, "project_id is required", http.StatusBadRequest)
		return
	}

	q := listSubjectsQuery{projectID: projectID}
	res, err := h.dispatch.Dispatch(r.Context(), q, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.ListByProject(ctx, q.projectID)
	})
	if err != nil {
		h.logger.Error("list subjects failed", "err", err)
		http.Error(w, "failed to list subjects", http.StatusInternalServerError)
		return
	}

	subjects := res.([]storage.Subject)
	items := make([]subjectItem, 0, len(subjects))
	for _, s := range subjects {
		items = append(items, subjectItem{
			SubjectID:   s.ID,
			ProjectID:   s.ProjectID,
			Name:        s.Name,
			Description: s.Description,
			CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type deleteSubjectCommand struct {
	pipeline.CommandBase
	subjectID string
}

func (h *SubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		SubjectID string `json:"subject_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.SubjectID == "" {
		http.Error(w, "subject_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ok, err := h.policy.Allow(ctx, userID, "subject:delete", req.SubjectID)
	if err != nil {
		h.logger.Error("policy check failed", "action", "subject:delete", "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cmd := deleteSubjectCommand{subjectID: req.SubjectID}
	_, err = h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return nil, h.repo.Delete(ctx, cmd.subjectID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "subject not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete subject failed", "err", err)
		http.Error(w, "failed to delete subject", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
