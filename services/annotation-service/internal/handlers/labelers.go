package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/auth"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/events"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/pipeline"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/storage"
)

const tokenTTL = 24 * time.Hour

type LabelerStore interface {
	Create(ctx context.Context, l *storage.Labeler) (string, error)
	Get(ctx context.Context, id string) (storage.Labeler, error)
	GetByEmail(ctx context.Context, email string) (storage.Labeler, error)
}

type LabelerHandler struct {
	dispatch *pipeline.Dispatcher
	repo     LabelerStore
	recorder *events.Recorder
	logger   *slog.Logger
	secret   string
}

func NewLabelerHandler(dispatch *pipeline.Dispatcher, repo LabelerStore, recorder *events.Recorder, logger *slog.Logger, secret string) *LabelerHandler {
	return &LabelerHandler{
		dispatch: dispatch,
		repo:     repo,
		recorder: recorder,
		logger:   logger,
		secret:   secret,
	}
}

type registerLabelerCommand struct {
	pipeline.CommandBase
	email        string
	passwordHash string
	displayName  string
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *LabelerHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		http.Error(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password failed", "err", err)
		http.Error(w, "failed to register", http.StatusInternalServerError)
		return
	}

	cmd := registerLabelerCommand{
		email:        req.Email,
		passwordHash: string(hash),
		displayName:  req.DisplayName,
	}
	res, err := h.dispatch.Dispatch(r.Context(), cmd, func(ctx context.Context, _ pipeline.Request) (any, error) {
		id, err := h.repo.Create(ctx, &storage.Labeler{
			Email:        cmd.email,
			PasswordHash: cmd.passwordHash,
			DisplayName:  cmd.displayName,
		})
		if err != nil {
			return nil, err
		}
		err = h.recorder.Record(ctx, id,
			fmt.Sprintf("Welcome, %s. Your labeler account is ready.", cmd.displayName),
			events.WithType("labeler.registered"),
		)
		if err != nil {
			return nil, err
		}
		return id, nil
	})
	if errors.Is(err, storage.ErrEmailTaken) {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("register labeler failed", "err", err)
		http.Error(w, "failed to register", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"labeler_id": res.(string)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	LabelerID string `json:"labeler_id"`
	ExpiresAt string `json:"expires_at"`
}

func (h *LabelerHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	labeler, err := h.repo.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("lookup labeler failed", "err", err)
		http.Error(w, "failed to log in", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(labeler.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	exp := now.Add(tokenTTL)
	token, err := auth.SignHS256(auth.Claims{
		Sub:   labeler.ID,
		Email: labeler.Email,
		Role:  "labeler",
		Exp:   exp.Unix(),
		Iat:   now.Unix(),
	}, h.secret)
	if err != nil {
		h.logger.Error("sign token failed", "err", err)
		http.Error(w, "failed to log in", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		LabelerID: labeler.ID,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
}

type labelerProfile struct {
	LabelerID   string `json:"labeler_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

func (h *LabelerHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := authUserID(r, h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	labeler, err := h.repo.Get(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "labeler not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get labeler failed", "err", err)
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, labelerProfile{
		LabelerID:   labeler.ID,
		Email:       labeler.Email,
		DisplayName: labeler.DisplayName,
		CreatedAt:   labeler.CreatedAt.UTC().Format(time.RFC3339),
	})
}
