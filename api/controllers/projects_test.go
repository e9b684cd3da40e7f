package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/api/middleware"
	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/types"
)

type stubProjectService struct {
	create func(ctx context.Context, actor projects.Actor, req projects.CreateProjectRequest) (*projects.ProjectDTO, error)
	list   func(ctx context.Context, actor projects.Actor, filter projects.ListFilter) ([]projects.ProjectDTO, error)
	get    func(ctx context.Context, actor projects.Actor, id uuid.UUID) (*projects.ProjectDTO, error)
	action func(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error)
}

func (s stubProjectService) Create(ctx context.Context, actor projects.Actor, req projects.CreateProjectRequest) (*projects.ProjectDTO, error) {
	if s.create != nil {
		return s.create(ctx, actor, req)
	}
	panic("unimplemented")
}

func (s stubProjectService) Get(ctx context.Context, actor projects.Actor, id uuid.UUID) (*projects.ProjectDTO, error) {
	if s.get != nil {
		return s.get(ctx, actor, id)
	}
	panic("unimplemented")
}

func (s stubProjectService) List(ctx context.Context, actor projects.Actor, filter projects.ListFilter) ([]projects.ProjectDTO, error) {
	if s.list != nil {
		return s.list(ctx, actor, filter)
	}
	panic("unimplemented")
}

func (s stubProjectService) AssignVibecoder(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error) {
	if s.action != nil {
		return s.action(ctx, actor, projectID)
	}
	panic("unimplemented")
}

func (s stubProjectService) StartWork(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error) {
	if s.action != nil {
		return s.action(ctx, actor, projectID)
	}
	panic("unimplemented")
}

func (s stubProjectService) Approve(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error) {
	if s.action != nil {
		return s.action(ctx, actor, projectID)
	}
	panic("unimplemented")
}

func (s stubProjectService) RequestRevision(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error) {
	if s.action != nil {
		return s.action(ctx, actor, projectID)
	}
	panic("unimplemented")
}

func authedRequest(method, url string, body string, userID uuid.UUID, role enums.UserRole) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, name, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body
}

func TestCreateProjectReturns201(t *testing.T) {
	clientID := uuid.New()
	projectID := uuid.New()
	svc := stubProjectService{
		create: func(ctx context.Context, actor projects.Actor, req projects.CreateProjectRequest) (*projects.ProjectDTO, error) {
			if actor.UserID != clientID {
				t.Fatalf("actor user mismatch: %s", actor.UserID)
			}
			if req.Title != "Landing page" {
				t.Fatalf("unexpected title %q", req.Title)
			}
			return &projects.ProjectDTO{ID: projectID, Title: req.Title, Status: enums.ProjectStatusCreated}, nil
		},
	}

	body := `{"title":"Landing page","description":"Marketing site","total_amount":5000000}`
	req := authedRequest(http.MethodPost, "/api/v1/projects", body, clientID, enums.UserRoleClient)
	resp := httptest.NewRecorder()
	CreateProject(svc, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data projects.ProjectDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != projectID {
		t.Fatalf("unexpected project id %s", envelope.Data.ID)
	}
}

func TestCreateProjectRejectsInvalidBody(t *testing.T) {
	svc := stubProjectService{
		create: func(ctx context.Context, actor projects.Actor, req projects.CreateProjectRequest) (*projects.ProjectDTO, error) {
			t.Fatal("service must not be called for invalid body")
			return nil, nil
		},
	}

	// Missing description and amount.
	req := authedRequest(http.MethodPost, "/api/v1/projects", `{"title":"x"}`, uuid.New(), enums.UserRoleClient)
	resp := httptest.NewRecorder()
	CreateProject(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	body := decodeError(t, resp)
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestCreateProjectRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CreateProject(stubProjectService{}, nil)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListProjectsAppliesStatusFilter(t *testing.T) {
	var captured projects.ListFilter
	svc := stubProjectService{
		list: func(ctx context.Context, actor projects.Actor, filter projects.ListFilter) ([]projects.ProjectDTO, error) {
			captured = filter
			return []projects.ProjectDTO{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/projects?status=IN_PROGRESS&assigned=true", "", uuid.New(), enums.UserRoleVibecoder)
	resp := httptest.NewRecorder()
	ListProjects(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Status == nil || *captured.Status != enums.ProjectStatusInProgress {
		t.Fatalf("expected status filter, got %v", captured.Status)
	}
	if !captured.Assigned {
		t.Fatal("expected assigned filter to be set")
	}
}

func TestListProjectsRejectsUnknownStatus(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/projects?status=NOPE", "", uuid.New(), enums.UserRoleClient)
	resp := httptest.NewRecorder()
	ListProjects(stubProjectService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestApproveProjectMapsStateConflict(t *testing.T) {
	svc := stubProjectService{
		action: func(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project is not awaiting review")
		},
	}

	projectID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/projects/"+projectID.String()+"/approve", "", uuid.New(), enums.UserRoleClient)
	req = withURLParam(req, "projectId", projectID.String())
	resp := httptest.NewRecorder()
	ApproveProject(svc, nil)(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	body := decodeError(t, resp)
	if body.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestApproveProjectRejectsMalformedID(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/projects/not-a-uuid/approve", "", uuid.New(), enums.UserRoleClient)
	req = withURLParam(req, "projectId", "not-a-uuid")
	resp := httptest.NewRecorder()
	ApproveProject(stubProjectService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
