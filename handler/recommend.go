// Package handler 通过 HTTP 暴露推荐服务。
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/service"
)

type RecommendHandler struct {
	svc *service.RecommendService
}

func NewRecommendHandler(s *service.RecommendService) *RecommendHandler {
	return &RecommendHandler{svc: s}
}

// queryInt 读取整数查询参数，缺失或非法时返回 0（由服务层套用默认值）。
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// GetRecommendations GET /api/recommendations?limit=
func (h *RecommendHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.GetRecommendations(r.Context(), UserIDFromContext(r.Context()), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: products, Message: "Personalized recommendations generated"})
}

// GetPopular GET /api/recommendations/popular?limit=
func (h *RecommendHandler) GetPopular(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.GetPopularProducts(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, products)
}

// GetSimilar GET /api/recommendations/similar/{productId}?limit=
func (h *RecommendHandler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.GetSimilarProducts(r.Context(), chi.URLParam(r, "productId"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, products)
}

type trackBody struct {
	ProductID string                   `json:"productId"`
	Type      string                   `json:"type"`
	Metadata  core.InteractionMetadata `json:"metadata"`
}

// Track POST /api/recommendations/track
func (h *RecommendHandler) Track(w http.ResponseWriter, r *http.Request) {
	var body trackBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	it, err := h.svc.RecordInteraction(r.Context(), service.TrackRequest{
		UserID:    UserIDFromContext(r.Context()),
		ProductID: body.ProductID,
		Type:      body.Type,
		Metadata:  body.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: it})
}

// History GET /api/recommendations/history?type=&limit=&skip=
func (h *RecommendHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.GetUserInteractions(r.Context(), UserIDFromContext(r.Context()), service.HistoryQuery{
		Type:  r.URL.Query().Get("type"),
		Limit: queryInt(r, "limit"),
		Skip:  queryInt(r, "skip"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, entries)
}

// DeleteHistory DELETE /api/recommendations/history
func (h *RecommendHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteUserInteractions(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]int64{"deleted": n})
}

// ProductStats GET /api/products/{productId}/stats
func (h *RecommendHandler) ProductStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetProductStats(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, stats)
}

// Health GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]string{"status": "ok"})
}
