package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/auth"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/events"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/pipeline"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/storage"
)

const testSecret = "handler-test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testToken(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub: userID,
		Exp: now.Add(time.Hour).Unix(),
		Iat: now.Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type fakeAppender struct {
	events []events.Event
}

func (f *fakeAppender) Append(_ context.Context, evt events.Event) error {
	f.events = append(f.events, evt)
	return nil
}

type denyPolicy struct{}

func (denyPolicy) Allow(context.Context, string, string, string) (bool, error) {
	return false, nil
}

type allowPolicy struct{}

func (allowPolicy) Allow(context.Context, string, string, string) (bool, error) {
	return true, nil
}

type fakeProjects struct {
	byID    map[string]storage.Project
	nextID  int
	created int
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{byID: map[string]storage.Project{}}
}

func (f *fakeProjects) Create(_ context.Context, p *storage.Project) (string, error) {
	f.nextID++
	id := fmt.Sprintf("project-%d", f.nextID)
	f.byID[id] = storage.Project{ID: id, Name: p.Name, Description: p.Description, OwnerID: p.OwnerID, CreatedAt: time.Now()}
	f.created++
	return id, nil
}

func (f *fakeProjects) Get(_ context.Context, id string) (storage.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return storage.Project{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeProjects) ListByOwner(_ context.Context, ownerID string) ([]storage.Project, error) {
	var out []storage.Project
	for _, p := range f.byID {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeSubjects struct {
	byID map[string]storage.Subject
}

func newFakeSubjects() *fakeSubjects {
	return &fakeSubjects{byID: map[string]storage.Subject{}}
}

func (f *fakeSubjects) Create(_ context.Context, s *storage.Subject) (string, error) {
	id := fmt.Sprintf("subject-%d", len(f.byID)+1)
	f.byID[id] = storage.Subject{ID: id, ProjectID: s.ProjectID, Name: s.Name, Description: s.Description, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeSubjects) Get(_ context.Context, id string) (storage.Subject, error) {
	s, ok := f.byID[id]
	if !ok {
		return storage.Subject{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeSubjects) ListByProject(_ context.Context, projectID string) ([]storage.Subject, error) {
	var out []storage.Subject
	for _, s := range f.byID {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubjects) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAssignments struct {
	rows map[string]storage.Assignment
}

func newFakeAssignments() *fakeAssignments {
	return &fakeAssignments{rows: map[string]storage.Assignment{}}
}

func (f *fakeAssignments) Create(_ context.Context, a *storage.Assignment) (string, error) {
	for _, row := range f.rows {
		if row.LabelerID == a.LabelerID && row.SubjectID == a.SubjectID {
			return "", storage.ErrAlreadyAssigned
		}
	}
	id := fmt.Sprintf("assignment-%d", len(f.rows)+1)
	f.rows[id] = storage.Assignment{ID: id, LabelerID: a.LabelerID, SubjectID: a.SubjectID, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeAssignments) Delete(_ context.Context, labelerID, subjectID string) error {
	for id, row := range f.rows {
		if row.LabelerID == labelerID && row.SubjectID == subjectID {
			delete(f.rows, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeAssignments) ListBySubject(_ context.Context, subjectID string) ([]storage.Assignment, error) {
	var out []storage.Assignment
	for _, row := range f.rows {
		if row.SubjectID == subjectID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeAssignments) CountBySubject(_ context.Context, subjectID string) (int, error) {
	n := 0
	for _, row := range f.rows {
		if row.SubjectID == subjectID {
			n++
		}
	}
	return n, nil
}

type fakeLabelers struct {
	byID map[string]storage.Labeler
}

func newFakeLabelers() *fakeLabelers {
	return &fakeLabelers{byID: map[string]storage.Labeler{}}
}

func (f *fakeLabelers) Create(_ context.Context, l *storage.Labeler) (string, error) {
	for _, row := range f.byID {
		if row.Email == l.Email {
			return "", storage.ErrEmailTaken
		}
	}
	id := fmt.Sprintf("labeler-%d", len(f.byID)+1)
	f.byID[id] = storage.Labeler{ID: id, Email: l.Email, PasswordHash: l.PasswordHash, DisplayName: l.DisplayName, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeLabelers) Get(_ context.Context, id string) (storage.Labeler, error) {
	l, ok := f.byID[id]
	if !ok {
		return storage.Labeler{}, storage.ErrNotFound
	}
	return l, nil
}

func (f *fakeLabelers) GetByEmail(_ context.Context, email string) (storage.Labeler, error) {
	for _, l := range f.byID {
		if l.Email == email {
			return l, nil
		}
	}
	return storage.Labeler{}, storage.ErrNotFound
}

func TestCreateProjectRecordsEvent(t *testing.T) {
	repo := newFakeProjects()
	appender := &fakeAppender{}
	h := NewProjectHandler(pipeline.NewDispatcher(), repo, events.NewRecorder(appender), allowPolicy{}, testLogger(), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects",
		strings.NewReader(`{"name": "Bird flights", "description": "wing annotation"}`))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "scientist-1"))
	rec := httptest.NewRecorder()
	h.Collection(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if repo.created != 1 {
		t.Fatalf("created %d projects, want 1", repo.created)
	}
	if len(appender.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(appender.events))
	}
	evt := appender.events[0]
	if evt.UserID != "scientist-1" {
		t.Fatalf("event user = %q, want scientist-1", evt.UserID)
	}
	if evt.EventType != "project.created" {
		t.Fatalf("event type = %q, want project.created", evt.EventType)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	h := NewProjectHandler(pipeline.NewDispatcher(), newFakeProjects(), events.NewRecorder(&fakeAppender{}), allowPolicy{}, testLogger(), testSecret)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing name", `{"description": "no name"}`, http.StatusBadRequest},
		{"blank name", `{"name": "   "}`, http.StatusBadRequest},
		{"broken json", `{"name": `, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(tc.body))
			req.Header.Set("Authorization", "Bearer "+testToken(t, "scientist-1"))
			rec := httptest.NewRecorder()
			h.Collection(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestCreateProjectRequiresAuth(t *testing.T) {
	h := NewProjectHandler(pipeline.NewDispatcher(), newFakeProjects(), events.NewRecorder(&fakeAppender{}), allowPolicy{}, testLogger(), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name": "x"}`))
	rec := httptest.NewRecorder()
	h.Collection(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name": "x"}`))
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	h.Collection(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with garbage token = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCreateProjectPolicyDenied(t *testing.T) {
	repo := newFakeProjects()
	appender := &fakeAppender{}
	h := NewProjectHandler(pipeline.NewDispatcher(), repo, events.NewRecorder(appender), denyPolicy{}, testLogger(), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name": "x"}`))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "scientist-1"))
	rec := httptest.NewRecorder()
	h.Collection(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if repo.created != 0 {
		t.Fatalf("denied command still created %d projects", repo.created)
	}
	if len(appender.events) != 0 {
		t.Fatalf("denied command still recorded %d events", len(appender.events))
	}
}

func TestAssignEmitsTwoEvents(t *testing.T) {
	projects := newFakeProjects()
	projectID, _ := projects.Create(context.Background(), &storage.Project{Name: "Bird flights", OwnerID: "scientist-1"})
	subjects := newFakeSubjects()
	subjectID, _ := subjects.Create(context.Background(), &storage.Subject{ProjectID: projectID, Name: "Takeoffs"})

	appender := &fakeAppender{}
	h := NewAssignmentHandler(pipeline.NewDispatcher(), newFakeAssignments(), subjects, projects,
		events.NewRecorder(appender), allowPolicy{}, testLogger(), testSecret)

	body := fmt.Sprintf(`{"labeler_id": "labeler-7", "subject_id": %q}`, subjectID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "scientist-1"))
	rec := httptest.NewRecorder()
	h.Assign(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(appender.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(appender.events))
	}
	if appender.events[0].UserID != "labeler-7" || appender.events[0].EventType != "assignment.created" {
		t.Fatalf("first event = %q to %q", appender.events[0].EventType, appender.events[0].UserID)
	}
	if appender.events[1].UserID != "scientist-1" || appender.events[1].EventType != "assignment.count_changed" {
		t.Fatalf("second event = %q to %q", appender.events[1].EventType, appender.events[1].UserID)
	}
}

func TestAssignUnknownSubject(t *testing.T) {
	h := NewAssignmentHandler(pipeline.NewDispatcher(), newFakeAssignments(), newFakeSubjects(), newFakeProjects(),
		events.NewRecorder(&fakeAppender{}), allowPolicy{}, testLogger(), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments",
		strings.NewReader(`{"labeler_id": "labeler-7", "subject_id": "missing"}`))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "scientist-1"))
	rec := httptest.NewRecorder()
	h.Assign(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	repo := newFakeLabelers()
	appender := &fakeAppender{}
	h := NewLabelerHandler(pipeline.NewDispatcher(), repo, events.NewRecorder(appender), testLogger(), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/labelers/register",
		strings.NewReader(`{"email": "Ana@Example.com", "password": "corretto42", "display_name": "Ana"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d (body %q)", rec.Code, rec.Body.String())
	}
	var created struct {
		LabelerID string `json:"labeler_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if len(appender.events) != 1 || appender.events[0].EventType != "labeler.registered" {
		t.Fatalf("register events = %+v", appender.events)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/labelers/login",
		strings.NewReader(`{"email": "ana@example.com", "password": "corretto42"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d (body %q)", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	claims, err := auth.ParseAndVerifyHS256(login.Token, testSecret)
	if err != nil {
		t.Fatalf("issued token did not verify: %v", err)
	}
	if claims.Sub != created.LabelerID {
		t.Fatalf("token sub = %q, want %q", claims.Sub, created.LabelerID)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/labelers/login",
		strings.NewReader(`{"email": "ana@example.com", "password": "wrong-password"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeLabelers()
	h := NewLabelerHandler(pipeline.NewDispatcher(), repo, events.NewRecorder(&fakeAppender{}), testLogger(), testSecret)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/labelers/register",
			strings.NewReader(`{"email": "ana@example.com", "password": "corretto42"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestCreateLabelRejectsBadColor(t *testing.T) {
	h := NewLabelHandler(pipeline.NewDispatcher(), nil, allowPolicy{}, testLogger(), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/labels",
		strings.NewReader(`{"subject_id": "subject-1", "name": "wing", "color_hex": "red"}`))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "scientist-1"))
	rec := httptest.NewRecorder()
	h.Collection(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
