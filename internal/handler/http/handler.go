package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/middleware"
)

// callerFrom builds the caller identity stored by the auth middleware.
func callerFrom(r *http.Request) domain.Caller {
	ctx := r.Context()
	return domain.Caller{
		ID:   middleware.UserIDFromContext(ctx),
		Role: domain.ParseRole(middleware.RoleFromContext(ctx)),
	}
}

// targetFromPath reads {entityKind} and {id}.
func targetFromPath(r *http.Request) (domain.Target, error) {
	return domain.TargetFor(chi.URLParam(r, "entityKind"), chi.URLParam(r, "id"))
}
