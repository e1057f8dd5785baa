package httputil

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	log.Error().Err(err).Msg(msg)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	log.Warn().Err(err).Str("message", msg).Msg("bad request")
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	log.Warn().Err(err).Str("message", msg).Msg("not found")
	http.Error(w, msg, http.StatusNotFound)
}

func Forbidden(w http.ResponseWriter, msg string) {
	log.Warn().Str("message", msg).Msg("forbidden")
	http.Error(w, msg, http.StatusForbidden)
}
