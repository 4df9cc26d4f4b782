package httpapi

import (
	"context"
	"net/http"
	"time"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/service"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httputil"
)

func (a *api) registerMemoryRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/memory/stats/{user_id}", a.handleMemoryStats)
	mux.HandleFunc("GET /api/memory/conversations/{user_id}", a.handleConversations)
	mux.HandleFunc("GET /api/memory/timeline/{user_id}", a.handleTimeline)
	mux.HandleFunc("GET /api/memory/topics/{user_id}", a.handleTopics)
	mux.HandleFunc("GET /api/memory/topics/{user_id}/search", a.handleTopicSearch)
	mux.HandleFunc("GET /api/memory/emotions/{user_id}", a.handleEmotionSearch)
	mux.HandleFunc("GET /api/memory/sessions/{user_id}/{session_id}", a.handleSessionMemories)
	mux.HandleFunc("GET /api/memory/index/{user_id}", a.handleIndexSearch)
	mux.HandleFunc("POST /api/memory/search", a.handleMemorySearch)
	mux.HandleFunc("POST /api/memory/reindex", a.handleReindex)
	mux.HandleFunc("POST /api/memory/summarize", a.handleSummarize)

	// 장기 사실
	mux.HandleFunc("POST /api/memory/facts", a.handleAddFacts)
	mux.HandleFunc("GET /api/memory/facts/{user_id}", a.handleListFacts)
	mux.HandleFunc("POST /api/memory/facts/reclassify", a.handleReclassify)
	mux.HandleFunc("PUT /api/memory/facts/{user_id}/{key}", a.handleOverrideFact)
}

type (
	// MemoryStatsResponse 사실 통계와 세션 개요
	MemoryStatsResponse struct {
		Facts    model.MemoryStats       `json:"facts"`
		Sessions []model.SessionOverview `json:"sessions"`
	}

	// MemoriesResponse 대화 기억 목록
	MemoriesResponse struct {
		Memories []model.ConversationMemory `json:"memories"`
		Count    int                        `json:"count"`
	}

	// TopicsResponse 토픽 빈도와 상위 토픽
	TopicsResponse struct {
		Frequency []model.TopicCount `json:"frequency"`
		Top       []model.TopicCount `json:"top"`
	}

	// FactsResponse 사실 목록
	FactsResponse struct {
		Memories []model.UserMemory `json:"memories"`
		Count    int                `json:"count"`
	}

	// ReclassifyResponse 재분류 결과
	ReclassifyResponse struct {
		Changed int `json:"changed"`
	}

	// IndexSearchResponse 인덱스 검색 결과
	IndexSearchResponse struct {
		Hits  []model.IndexHit `json:"hits"`
		Count int              `json:"count"`
	}

	// MemorySearchResponse 요약문 검색 결과. 요약이 없으면 사실 검색 결과를 채운다.
	MemorySearchResponse struct {
		Query    string                     `json:"query"`
		Source   string                     `json:"source"`
		Memories []model.ConversationMemory `json:"memories"`
		Facts    []model.UserMemory         `json:"facts"`
		Count    int                        `json:"count"`
	}

	// ReindexResponse 재구축된 인덱스 행 수
	ReindexResponse struct {
		Rebuilt int `json:"rebuilt"`
	}
)

const (
	searchSourceSummaries = "summaries"
	searchSourceFacts     = "facts"
)

func (a *api) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_stats_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultOverviewLimit)
	if err != nil {
		respondError(w, a.Logger, "memory_stats_rejected", err, "user_id", userID)
		return
	}

	facts, err := a.Facts.Stats(r.Context(), userID)
	if err != nil {
		respondError(w, a.Logger, "memory_stats_failed", err, "user_id", userID)
		return
	}
	sessions, err := a.Memories.ConversationOverview(r.Context(), userID, limit)
	if err != nil {
		respondError(w, a.Logger, "memory_stats_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, MemoryStatsResponse{Facts: facts, Sessions: nonNil(sessions)})
}

func (a *api) handleConversations(w http.ResponseWriter, r *http.Request) {
	a.listMemories(w, r, "conversations", bconfig.DefaultRecentDays, bconfig.DefaultRecentLimit, a.Memories.GetRecentSummaries)
}

func (a *api) handleTimeline(w http.ResponseWriter, r *http.Request) {
	a.listMemories(w, r, "timeline", bconfig.DefaultTimelineDays, bconfig.DefaultTimelineLimit, a.Memories.GetConversationTimeline)
}

type memoryLister func(ctx context.Context, userID string, days, limit int) ([]model.ConversationMemory, error)

func (a *api) listMemories(w http.ResponseWriter, r *http.Request, name string, defDays, defLimit int, list memoryLister) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_"+name+"_rejected", err, "user_id", userID)
		return
	}
	days, err := queryInt(r, "days", defDays)
	if err != nil {
		respondError(w, a.Logger, "memory_"+name+"_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", defLimit)
	if err != nil {
		respondError(w, a.Logger, "memory_"+name+"_rejected", err, "user_id", userID)
		return
	}

	memories, err := list(r.Context(), userID, days, limit)
	if err != nil {
		respondError(w, a.Logger, "memory_"+name+"_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, MemoriesResponse{Memories: nonNil(memories), Count: len(memories)})
}

func (a *api) handleTopics(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_topics_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultMostDiscussed)
	if err != nil {
		respondError(w, a.Logger, "memory_topics_rejected", err, "user_id", userID)
		return
	}

	frequency, err := a.Memories.GetTopicFrequency(r.Context(), userID)
	if err != nil {
		respondError(w, a.Logger, "memory_topics_failed", err, "user_id", userID)
		return
	}
	top, err := a.Memories.GetMostDiscussedTopics(r.Context(), userID, limit)
	if err != nil {
		respondError(w, a.Logger, "memory_topics_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, TopicsResponse{Frequency: nonNil(frequency), Top: nonNil(top)})
}

func (a *api) handleTopicSearch(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_topic_search_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultTopicSearchLimit)
	if err != nil {
		respondError(w, a.Logger, "memory_topic_search_rejected", err, "user_id", userID)
		return
	}

	memories, err := a.Memories.SearchByTopic(r.Context(), userID, httputil.QueryString(r, "topic"), limit)
	if err != nil {
		respondError(w, a.Logger, "memory_topic_search_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, MemoriesResponse{Memories: nonNil(memories), Count: len(memories)})
}

func (a *api) handleEmotionSearch(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_emotion_search_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultTopicSearchLimit)
	if err != nil {
		respondError(w, a.Logger, "memory_emotion_search_rejected", err, "user_id", userID)
		return
	}

	memories, err := a.Memories.SearchByEmotion(r.Context(), userID, httputil.QueryString(r, "emotion"), limit)
	if err != nil {
		respondError(w, a.Logger, "memory_emotion_search_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, MemoriesResponse{Memories: nonNil(memories), Count: len(memories)})
}

func (a *api) handleSessionMemories(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	sessionID := r.PathValue("session_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_session_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultRecentLimit)
	if err != nil {
		respondError(w, a.Logger, "memory_session_rejected", err, "user_id", userID)
		return
	}

	memories, err := a.Memories.GetBySession(r.Context(), userID, sessionID, limit)
	if err != nil {
		respondError(w, a.Logger, "memory_session_failed", err, "user_id", userID, "session_id", sessionID)
		return
	}
	respondJSON(w, http.StatusOK, MemoriesResponse{Memories: nonNil(memories), Count: len(memories)})
}

// handleIndexSearch entity 가 있으면 개체 인덱스, 없으면 토픽 인덱스를 찾는다.
func (a *api) handleIndexSearch(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "memory_index_search_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultIndexSearchLimit)
	if err != nil {
		respondError(w, a.Logger, "memory_index_search_rejected", err, "user_id", userID)
		return
	}

	var hits []model.IndexHit
	if entity := httputil.QueryString(r, "entity"); entity != "" {
		hits, err = a.Memories.FindSessionsByEntity(r.Context(), userID, entity, limit)
	} else {
		hits, err = a.Memories.FindSessionsByTopic(r.Context(), userID, httputil.QueryString(r, "topic"), limit)
	}
	if err != nil {
		respondError(w, a.Logger, "memory_index_search_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, IndexSearchResponse{Hits: nonNil(hits), Count: len(hits)})
}

func (a *api) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	var req MemorySearchRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "memory_search_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "memory_search_rejected", err, "user_id", req.UserID)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = bconfig.DefaultRecentLimit
	}

	res := MemorySearchResponse{Query: req.Query, Source: searchSourceSummaries}
	memories, err := a.Memories.SearchByText(r.Context(), req.UserID, req.Query, limit)
	if err != nil {
		respondError(w, a.Logger, "memory_search_failed", err, "user_id", req.UserID)
		return
	}
	res.Memories = nonNil(memories)
	res.Facts = []model.UserMemory{}
	res.Count = len(memories)

	if len(memories) == 0 {
		facts, err := a.Facts.SearchMemories(r.Context(), req.UserID, req.Query, limit)
		if err != nil {
			respondError(w, a.Logger, "memory_search_failed", err, "user_id", req.UserID)
			return
		}
		res.Source = searchSourceFacts
		res.Facts = nonNil(facts)
		res.Count = len(facts)
	}
	respondJSON(w, http.StatusOK, res)
}

func (a *api) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "memory_reindex_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "memory_reindex_rejected", err, "user_id", req.UserID)
		return
	}

	rebuilt, err := a.Memories.ReindexUserMemories(r.Context(), req.UserID)
	if err != nil {
		respondError(w, a.Logger, "memory_reindex_failed", err, "user_id", req.UserID)
		return
	}
	respondJSON(w, http.StatusOK, ReindexResponse{Rebuilt: rebuilt})
}

func (a *api) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "memory_summarize_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "memory_summarize_rejected", err, "user_id", req.UserID)
		return
	}

	start := time.Now()
	outcome, err := a.Summaries.ProcessJob(r.Context(), model.SummaryJob{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Force:       true,
		RequestedAt: start.UTC(),
	})
	duration := time.Since(start).Milliseconds()
	if err != nil {
		respondError(w, a.Logger, "memory_summarize_failed", err, "user_id", req.UserID, "session_id", req.SessionID, "duration", duration)
		return
	}
	a.Logger.Info("memory_summarize_success", "user_id", req.UserID, "session_id", req.SessionID, "recorded", outcome.Recorded, "duration", duration)
	respondJSON(w, http.StatusOK, toSummaryResponse(req.SessionID, outcome))
}

func (a *api) handleAddFacts(w http.ResponseWriter, r *http.Request) {
	var req FactsRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "facts_add_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "facts_add_rejected", err, "user_id", req.UserID)
		return
	}

	items := make([]service.UserMemoryInput, len(req.Memories))
	for i, m := range req.Memories {
		items[i] = service.UserMemoryInput{Key: m.Key, Value: m.Value, Metadata: m.Metadata}
	}
	stored, err := a.Facts.AddMemoriesBatch(r.Context(), req.UserID, items)
	if err != nil {
		respondError(w, a.Logger, "facts_add_failed", err, "user_id", req.UserID, "stored", len(stored))
		return
	}
	respondJSON(w, http.StatusOK, FactsResponse{Memories: stored, Count: len(stored)})
}

// handleListFacts q 가 있으면 키 검색, 없으면 importance 필터 조회
func (a *api) handleListFacts(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "facts_list_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultFactsLimit)
	if err != nil {
		respondError(w, a.Logger, "facts_list_rejected", err, "user_id", userID)
		return
	}

	var memories []model.UserMemory
	if q := httputil.QueryString(r, "q"); q != "" {
		memories, err = a.Facts.SearchMemories(r.Context(), userID, q, limit)
	} else {
		memories, err = a.Facts.GetMemories(r.Context(), userID, httputil.QueryString(r, "importance"), limit)
	}
	if err != nil {
		respondError(w, a.Logger, "facts_list_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, FactsResponse{Memories: nonNil(memories), Count: len(memories)})
}

func (a *api) handleReclassify(w http.ResponseWriter, r *http.Request) {
	var req ReclassifyRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "facts_reclassify_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "facts_reclassify_rejected", err, "user_id", req.UserID)
		return
	}

	changed, err := a.Facts.Reclassify(r.Context(), req.UserID)
	if err != nil {
		respondError(w, a.Logger, "facts_reclassify_failed", err, "user_id", req.UserID)
		return
	}
	respondJSON(w, http.StatusOK, ReclassifyResponse{Changed: changed})
}

func (a *api) handleOverrideFact(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	key := r.PathValue("key")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "facts_override_rejected", err, "user_id", userID)
		return
	}
	var req OverrideRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "facts_override_rejected", err, "user_id", userID)
		return
	}

	updated, err := a.Facts.SetOverride(r.Context(), userID, key, req.Importance, req.Category)
	if err != nil {
		respondError(w, a.Logger, "facts_override_failed", err, "user_id", userID, "key", key)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
