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

type AssignmentStore interface {
	Create(ctx context.Context, a *storage.Assignment) (string, error)
	Delete(ctx context.Context, labelerID, subjectID string) error
	ListBySubject(ctx context.Context, subjectID string) ([]storage.Assignment, error)
	CountBySubject(ctx context.Context, subjectID string) (int, error)
}

type SubjectStore interface {
	Create(ctx context.Context, s *storage.Subject) (string, error)
	Get(ctx context.Context, id string) (storage.Subject, error)
	ListByProject(ctx context.Context, projectID string) ([]storage.Subject, error)
	Delete(ctx context.Context, id string) error
}

type AssignmentHandler struct {
	dispatch *pipeline.Dispatcher
	repo     AssignmentStore
	subjects SubjectStore
	projects ProjectStore
	recorder *events.Recorder
	policy   policy.Provider
	logger   *slog.Logger
	secret   string
}

func NewAssignmentHandler(dispatch *pipeline.Dispatcher, repo AssignmentStore, subjects SubjectStore, projects ProjectStore, recorder *events.Recorder, policyProvider policy.Provider, logger *slog.Logger, secret string) *AssignmentHandler {
	return &AssignmentHandler{
		dispatch: dispatch,
		repo:     repo,
		subjects: subjects,
		projects: projects,
		recorder: recorder,
		policy:   policyProvider,
		logger:   logger,
		secret:   secret,
	}
}

type assignLabelerCommand struct {
	pipeline.CommandBase
	labelerID string
	subjectID string
	actorID   string
}

type assignRequest struct {
	LabelerID string `json:"labeler_id"`
	SubjectID string `json:"subject_id"`
}

type assignResponse struct {
	AssignmentID string `json:"assignment_id"`
}

// Assign links a labeler to a subject. One command records two events in the
// same transaction: the labeler learns about the assignment and the project
// owner sees the updated assignment count.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actorID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.LabelerID = strings.TrimSpace(req.LabelerID)
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.LabelerID == "" || req.SubjectID == "" {
		http.Error(w, "labeler_id and subject_id are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ok, err := h.policy.Allow(ctx, actorID, "assignment:create", req.SubjectID)
	if err != nil {
		h.logger.Error("policy check failed", "action", "assignment:create", "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cmd := assignLabelerCommand{labelerID: req.LabelerID, subjectID: req.SubjectID, actorID: actorID}
	res, err := h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		subject, err := h.subjects.Get(ctx, cmd.subjectID)
		if err != nil {
			return nil, err
		}
		project, err := h.projects.Get(ctx, subject.ProjectID)
		if err != nil {
			return nil, err
		}

		id, err := h.repo.Create(ctx, &storage.Assignment{
			LabelerID: cmd.labelerID,
			SubjectID: cmd.subjectID,
		})
		if err != nil {
			return nil, err
		}
		count, err := h.repo.CountBySubject(ctx, cmd.subjectID)
		if err != nil {
			return nil, err
		}

		err = h.recorder.Record(ctx, cmd.labelerID,
			fmt.Sprintf("You have been assigned to subject %q.", subject.Name),
			events.WithType("assignment.created"),
			events.WithData(map[string]string{"assignment_id": id, "subject_id": cmd.subjectID}),
		)
		if err != nil {
			return nil, err
		}
		err = h.recorder.Record(ctx, project.OwnerID,
			fmt.Sprintf("Subject %q now has %d assigned labelers.", subject.Name, count),
			events.WithType("assignment.count_changed"),
			events.WithData(map[string]any{"subject_id": cmd.subjectID, "count": count}),
		)
		if err != nil {
			return nil, err
		}
		return id, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "subject not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, storage.ErrAlreadyAssigned) {
		http.Error(w, "labeler already assigned", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("assign labeler failed", "err", err)
		http.Error(w, "failed to assign labeler", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, assignResponse{AssignmentID: res.(string)})
}

type unassignLabelerCommand struct {
	pipeline.CommandBase
	labelerID string
	subjectID string
	actorID   string
}

func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actorID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.LabelerID = strings.TrimSpace(req.LabelerID)
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.LabelerID == "" || req.SubjectID == "" {
		http.Error(w, "labeler_id and subject_id are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ok, err := h.policy.Allow(ctx, actorID, "assignment:delete", req.SubjectID)
	if err != nil {
		h.logger.Error("policy check failed", "action", "assignment:delete", "err", err)
		http.Error(w, "policy service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cmd := unassignLabelerCommand{labelerID: req.LabelerID, subjectID: req.SubjectID, actorID: actorID}
	_, err = h.dispatch.Dispatch(ctx, cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		subject, err := h.subjects.Get(ctx, cmd.subjectID)
		if err != nil {
			return nil, err
		}
		if err := h.repo.Delete(ctx, cmd.labelerID, cmd.subjectID); err != nil {
			return nil, err
		}
		err = h.recorder.Record(ctx, cmd.labelerID,
			fmt.Sprintf("You have been unassigned from subject %q.", subject.Name),
			events.WithType("assignment.deleted"),
			events.WithData(map[string]string{"subject_id": cmd.subjectID}),
		)
		if err != nil {
			return nil, err
		}
		return nil, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "assignment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("unassign labeler failed", "err", err)
		http.Error(w, "failed to unassign labeler", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type listAssignmentsQuery struct {
	subjectID string
}

type assignmentItem struct {
	AssignmentID string `json:"assignment_id"`
	LabelerID    string `json:"labeler_id"`
	SubjectID    string `json:"subject_id"`
	CreatedAt    string `json:"created_at"`
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := authUserID(r, h.secret); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	subjectID := strings.TrimSpace(r.URL.Query().Get("subject_id"))
	if subjectID == "" {
		http.Error(w, "subject_id is required", http.StatusBadRequest)
		return
	}

	q := listAssignmentsQuery{subjectID: subjectID}
	res, err := h.dispatch.Dispatch(r.Context(), q, func(ctx context.Context, _ pipeline.Request) (any, error) {
		return h.repo.ListBySubject(ctx, q.subjectID)
	})
	if err != nil {
		h.logger.Error("list assignments failed", "err", err)
		http.Error(w, "failed to list assignments", http.StatusInternalServerError)
		return
	}

	assignments := res.([]storage.Assignment)
	items := make([]assignmentItem, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, assignmentItem{
			AssignmentID: a.ID,
			LabelerID:    a.LabelerID,
			SubjectID:    a.SubjectID,
			CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}
