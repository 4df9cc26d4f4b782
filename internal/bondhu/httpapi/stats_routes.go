package httpapi

import (
	"net/http"
	"time"
)

func (a *api) registerStatsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats/dashboard/{user_id}", a.handleDashboard)
	mux.HandleFunc("GET /api/stats/achievements/{user_id}", a.handleAchievements)
	mux.HandleFunc("POST /api/stats/activity", a.handleActivity)
}

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "dashboard_rejected", err, "user_id", userID)
		return
	}

	stats, err := a.Dashboard.GetDashboardStats(r.Context(), userID)
	if err != nil {
		respondError(w, a.Logger, "dashboard_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *api) handleAchievements(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "achievements_rejected", err, "user_id", userID)
		return
	}

	list, err := a.Dashboard.ListAchievements(r.Context(), userID)
	if err != nil {
		respondError(w, a.Logger, "achievements_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// handleActivity 메시지 외 활동(game, login)을 같은 파이프라인으로 기록한다.
func (a *api) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "activity_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "activity_rejected", err, "user_id", req.UserID)
		return
	}

	start := time.Now()
	result, err := a.Pipeline.RecordActivity(r.Context(), req.UserID, req.ActivityType)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		respondError(w, a.Logger, "activity_failed", err, "user_id", req.UserID, "activity_type", req.ActivityType, "duration", duration)
		return
	}
	a.Logger.Info("activity_recorded",
		"user_id", req.UserID,
		"activity_type", req.ActivityType,
		"unlocked", len(result.NewlyUnlocked),
		"duration", duration,
	)
	respondJSON(w, http.StatusOK, result)
}
