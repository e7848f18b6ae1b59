package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pratik-mahalle/iamgen/internal/api/middleware"
	"github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/pkg/utils"
)

// respondJSON sends a successful JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	_ = utils.WriteSuccess(w, status, data)
}

// respondError maps err to its HTTP status and sends it. Server-side failures are logged.
func respondError(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	appErr := errors.From(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.ErrorWithErr(err, msg)
	}
	middleware.AddLogField(w, "error_code", appErr.Code)
	_ = utils.WriteError(w, appErr)
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.BadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// queryInt parses an integer query parameter, returning 0 when absent or malformed
func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// queryList collects a repeated or comma separated query parameter
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
