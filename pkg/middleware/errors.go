package middleware

import (
	"net/http"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/httputil"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/logger"
)

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
