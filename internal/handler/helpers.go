package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
)

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind apperr.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}

// writeAppErr maps a service error onto the response taxonomy. Internal
// causes are logged, never leaked.
func writeAppErr(w http.ResponseWriter, op string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Errorf("%s: %v", op, err)
	}
	writeError(w, apperr.HTTPStatus(err), kind, apperr.MessageOf(err))
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
