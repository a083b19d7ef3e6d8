package main

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func basicSanitize(input string) string {
	reg := regexp.MustCompile(`[^a-zA-Z0-9 \-]+`)
	safeSlug := reg.ReplaceAllString(input, "")

	// Ensure no leading/trailing dashes
	return strings.Trim(safeSlug, "-")
}

// parseDayParam reads the {day} URL parameter and writes the error
// response itself when the value is unusable.
func parseDayParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 {
		http.Error(w, "Malformed day", http.StatusBadRequest)
		return 0, false
	}
	return day, true
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique index")
}
