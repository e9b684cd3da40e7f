package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/api/responses"
	"github.com/vibebridge/vibebridge-backend/api/validators"
	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/logger"
)

// CreateProject posts a new project with its milestone plan.
func CreateProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req projects.CreateProjectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), actor, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ListProjects returns the projects visible to the caller, optionally filtered.
func ListProjects(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter projects.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseProjectStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseProjectCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category filter"))
				return
			}
			filter.Category = &category
		}
		assigned, err := validators.ParseQueryBool(r, "assigned", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Assigned = assigned

		list, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetProject fetches a single project with milestones.
func GetProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AssignProject lets a vibecoder claim an open project.
func AssignProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return projectAction(svc.AssignVibecoder, logg)
}

// StartProject moves a funded project into active work.
func StartProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return projectAction(svc.StartWork, logg)
}

// ApproveProject releases all locked escrow and completes the project.
func ApproveProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return projectAction(svc.Approve, logg)
}

// RequestProjectRevision sends submitted work back for another pass.
func RequestProjectRevision(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return projectAction(svc.RequestRevision, logg)
}

func projectAction(
	fn func(ctx context.Context, actor projects.Actor, projectID uuid.UUID) (*projects.ProjectDTO, error),
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := fn(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
