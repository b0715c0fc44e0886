package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/events"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/pipeline"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/policy"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/storage"
)

type ProjectStore interface {
	Create(ctx context.Context, p *storage.Project) (string, error)
	Get(ctx context.Context, id string) (storage.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]storage.Project, error)
	Delete(ctx context.Context, id string) error
}

type ProjectHandler struct {
	dispatch *pipeline.Dispatcher
	repo     ProjectStore
	recorder *events.Recorder
	policy   policy.Provider
	logger   *slog.Logger
	secret   string
}

func NewProjectHandler(dispatch *pipeline.Dispatcher, repo ProjectStore, recorder *events.Recorder, policyProvider policy.Provider, logger *slog.Logger, secret string) *ProjectHandler {
	return &ProjectHandler{
		dispatch: dispatch,
		repo:     repo,
		recorder: recorder,
		policy:   policyProvider,
		logger:   logger,
		secret:   secret,
	}
}

type createProjectCommand struct {
	pipeline.CommandBase
	ownerID     string
	name        string
	description string
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createProjectResponse struct {
	ProjectID string `json:"project_id"`
}

type projectItem struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
}

// Collection handles POST (create) and GET (list own projects).
func (h *ProjectHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProjectHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if !h.allowed(ctx, w, userID, "project:create", "") {
		return
	}

	cmd := createProjectCommand{ownerID: userID, name: req.Name, description: strings.TrimSpace(req.Description)}
	res, err := h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		id, err := h.repo.Create(ctx, &storage.Project{
			Name:        cmd.name,
			Description: cmd.description,
			OwnerID:     cmd.ownerID,
		})
		if err != nil {
			return nil, err
		}
		err = h.recorder.Record(ctx, cmd.ownerID,
			fmt.Sprintf("Project %q created.", cmd.name),
			events.WithType("project.created"),
			events.WithData(map[string]string{"project_id": id}),
		)
		if err != nil {
			return nil, err
		}
		return id, nil
	})
	if err != nil {
		h.logger.Error("create project failed", "err", err)
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createProjectResponse{ProjectID: res.(string)})
}

type listProjectsQuery struct {
	ownerID string
}

func (h *ProjectHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := listProjectsQuery{ownerID: userID}
	res, err := h.dispatch.Dispatch(r.Context(), q, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.ListByOwner(ctx, q.ownerID)
	})
	if err != nil {
		h.logger.Error("list projects failed", "err", err)
		http.Error(w, "failed to list projects", http.StatusInternalServerError)
		return
	}

	projects := res.([]storage.Project)
	items := make([]projectItem, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectItem{
			ProjectID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			OwnerID:     p.OwnerID,
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type getProjectQuery struct {
	projectID string
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := authUserID(r, h.secret); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	q := getProjectQuery{projectID: id}
	res, err := h.dispatch.Dispatch(r.Context(), q, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.Get(ctx, q.projectID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get project failed", "err", err)
		http.Error(w, "failed to get project", http.StatusInternalServerError)
		return
	}

	p := res.(storage.Project)
	writeJSON(w, http.StatusOK, projectItem{
		ProjectID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type deleteProjectCommand struct {
	pipeline.CommandBase
	projectID string
	ownerID   string
}

type deleteProjectRequest struct {
	ProjectID string `json:"project_id"`
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req deleteProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		http.Error(w, "project_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if !h.allowed(ctx, w, userID, "project:delete", req.ProjectID) {
		return
	}

	cmd := deleteProjectCommand{projectID: req.ProjectID, ownerID: userID}
	_, err = h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		project, err := h.repo.Get(ctx, cmd.projectID)
		if err != nil {
			return nil, err
		}
		if err := h.repo.Delete(ctx, cmd.projectID); err != nil {
			return nil, err
		}
		err = h.recorder.Record(ctx, cmd.ownerID,
			fmt.Sprintf("Project %q deleted.", project.Name),
			events.WithType("project.deleted"),
			events.WithData(map[string]string{"project_id": cmd.projectID}),
		)
		if err != nil {
			return nil, err
		}
		return nil, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete project failed", "err", err)
		http.Error(w, "failed to delete project", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) allowed(ctx context.Context, w http.ResponseWriter, userID, action, resource string) bool {
	ok, err := h.policy.Allow(ctx, userID, action, resource)
	if err != nil {
		h.logger.Error("policy check failed", "action", action, "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return false
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}
