package handler

import (
	"net/http"
	"strconv"
	"time"

	"pipelineiq-backend/internal/analytics"
	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"
	"pipelineiq-backend/internal/server/authctx"
	"pipelineiq-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

type AnalyticsHandler struct {
	Deals    repository.DealRepository
	Stats    repository.AnalyticsRepository
	Statuses repository.StatusRepository
	Settings repository.SettingsRepository
	Access   service.AccessService
}

func (h AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics/yearly", h.yearly)
	r.Get("/analytics/monthly", h.monthly)
	r.Get("/analytics/lead-sources", h.leadSources)
	r.Get("/analytics/funnel", h.funnel)
	r.Get("/analytics/pipeline", h.pipeline)
	r.Get("/analytics/archive-reasons", h.archiveReasons)
	r.Get("/analytics/closing", h.closing)
}

func (h AnalyticsHandler) scopeIDs(r *http.Request) ([]int64, error) {
	user := authctx.FromContext(r.Context())
	scope := h.Access.ResolveScope(r.Context(), *user)
	agents, err := parseIDList(r, "agents")
	if err != nil {
		return nil, err
	}
	return h.Access.NarrowScope(scope, agents).UserIDs, nil
}

// yearly returns the year-in-review summary plus best/worst month and the
// goal pace projection. ?engine=sql pushes the aggregation into Postgres;
// the default folds rows in process. Both produce the same shape.
func (h AnalyticsHandler) yearly(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		stats   analytics.YearlyStats
		buckets []analytics.MonthBucket
	)
	if r.URL.Query().Get("engine") == "sql" {
		stats, err = h.Stats.YearSummary(r.Context(), userIDs, year)
		if err == nil {
			buckets, err = h.Stats.MonthlyRollup(r.Context(), userIDs, year)
		}
	} else {
		deals, lerr := h.Deals.List(r.Context(), repository.DealFilter{UserIDs: userIDs}, 0)
		if lerr != nil {
			err = lerr
		} else {
			stats = analytics.YearStats(deals, year)
			buckets = analytics.MonthlyRollup(deals, year)
		}
	}
	if err != nil {
		writeRepoError(w, err)
		return
	}

	settings, err := h.Settings.Get(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	now := time.Now().UTC()
	fraction := 1.0
	if year == now.Year() {
		fraction = analytics.YearFraction(now)
	}

	payload := map[string]any{
		"stats":   stats,
		"monthly": buckets,
		"goal": map[string]any{
			"annualGciGoal": settings.AnnualGCIGoal,
			"pace":          analytics.GoalPace(stats.TotalGCI, fraction),
		},
	}
	if best, ok := analytics.BestMonth(buckets); ok {
		payload["bestMonth"] = best
	}
	if worst, ok := analytics.WorstMonth(buckets); ok {
		payload["worstMonth"] = worst
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h AnalyticsHandler) monthly(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buckets []analytics.MonthBucket
	if r.URL.Query().Get("engine") == "sql" {
		buckets, err = h.Stats.MonthlyRollup(r.Context(), userIDs, year)
	} else {
		deals, lerr := h.Deals.List(r.Context(), repository.DealFilter{UserIDs: userIDs}, 0)
		if lerr != nil {
			err = lerr
		} else {
			buckets = analytics.MonthlyRollup(deals, year)
		}
	}
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (h AnalyticsHandler) leadSources(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// deal rows and the cohort count are independent queries, fetched in
	// parallel and joined before the fold
	var (
		deals []domain.Deal
		leads int64
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var gerr error
		deals, gerr = h.Deals.List(gctx, repository.DealFilter{UserIDs: userIDs}, 0)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		leads, gerr = h.Stats.LeadCount(gctx, userIDs, year)
		return gerr
	})
	if err := g.Wait(); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leadCount": leads,
		"sources":   analytics.LeadSourcePerformance(deals, year),
	})
}

func (h AnalyticsHandler) funnel(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := h.Deals.ListStageEvents(r.Context(), userIDs)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Funnel(events, year))
}

func (h AnalyticsHandler) pipeline(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var (
		deals    []domain.Deal
		statuses []domain.PipelineStatus
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var gerr error
		deals, gerr = h.Deals.List(gctx, repository.DealFilter{UserIDs: userIDs}, 0)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		statuses, gerr = h.Statuses.List(gctx)
		return gerr
	})
	if err := g.Wait(); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PipelineDistribution(deals, statuses, time.Now().UTC()))
}

func (h AnalyticsHandler) archiveReasons(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deals, err := h.Deals.List(r.Context(), repository.DealFilter{UserIDs: userIDs}, 0)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.ArchiveReasons(deals, year))
}

// closing lists open deals whose close deadline falls in the window. The
// default window is the current calendar month; ?days=N switches to a
// rolling window and ?until=YYYY-MM-DD to an explicit end date.
func (h AnalyticsHandler) closing(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.scopeIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deals, err := h.Deals.List(r.Context(), repository.DealFilter{UserIDs: userIDs}, 0)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	now := time.Now().UTC()

	var rows []dealPayload
	switch {
	case r.URL.Query().Get("days") != "":
		days, perr := strconv.Atoi(r.URL.Query().Get("days"))
		if perr != nil || days <= 0 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		for _, d := range analytics.ClosingWithinDays(deals, now, days) {
			rows = append(rows, toDealPayload(d))
		}
	case r.URL.Query().Get("until") != "":
		until, perr := parseDateQuery(r, "until")
		if perr != nil || until == nil {
			writeError(w, http.StatusBadRequest, "invalid until")
			return
		}
		for _, d := range analytics.ClosingUntil(deals, now, *until) {
			rows = append(rows, toDealPayload(d))
		}
	default:
		for _, d := range analytics.ClosingThisMonth(deals, now) {
			rows = append(rows, toDealPayload(d))
		}
	}
	if rows == nil {
		rows = []dealPayload{}
	}
	writeJSON(w, http.StatusOK, rows)
}
