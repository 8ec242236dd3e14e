package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("layer", "server")

func writeOK(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		writeInternalError(ctx, w, "failed to marshal response: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b) // nolint:errcheck
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeOK(ctx, w, status, Error{Error: message})
}

func writeInvalidInput(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	writeOK(ctx, w, http.StatusBadRequest, Error{Error: "invalid request", Fields: fields})
}

// writeInternalError logs the cause and replies with a generic message, no
// storage detail ever reaches the caller.
func writeInternalError(ctx context.Context, w http.ResponseWriter, message string) {
	log.WithField("request_id", middleware.GetReqID(ctx)).Error(message)

	writeOK(ctx, w, http.StatusInternalServerError, Error{Error: "internal error"})
}
