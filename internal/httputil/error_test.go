package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorResponses(t *testing.T) {
	testCases := []struct {
		name     string
		write    func(w http.ResponseWriter)
		status   int
		contains string
	}{
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "failed", errors.New("boom")) }, http.StatusInternalServerError, "Internal Server Error"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid match ID", nil) }, http.StatusBadRequest, "Invalid match ID"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "Tournament not found", errors.New("no rows")) }, http.StatusNotFound, "Tournament not found"},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "Not a member") }, http.StatusForbidden, "Not a member"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.contains)
		})
	}
}
