package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/api/middleware"
	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
)

// requireActor reads the authenticated identity placed in the context by the
// auth middleware.
func requireActor(r *http.Request) (projects.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return projects.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return projects.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return projects.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return projects.Actor{UserID: userID, Role: role}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}
