package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// parseIDList reads a comma-joined id list query param, the format the SPA
// stores in its filter URLs (?agents=1,4&leadSources=2).
func parseIDList(r *http.Request, key string) ([]int64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseStringList(r *http.Request, key string) []string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseYear reads a ?year= param, defaulting to the current UTC year.
func parseYear(r *http.Request) (int, error) {
	value := r.URL.Query().Get("year")
	if value == "" {
		return time.Now().UTC().Year(), nil
	}
	year, err := strconv.Atoi(value)
	if err != nil || year < 1970 || year > 9999 {
		return 0, errInvalidYear
	}
	return year, nil
}

func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type paramError string

func (e paramError) Error() string { return string(e) }

const errInvalidYear = paramError("invalid year")
