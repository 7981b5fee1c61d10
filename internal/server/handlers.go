package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrAuthRequired):
		WriteErrorWithCode(w, http.StatusUnauthorized, "authentication required", "auth_required")
	case errors.Is(err, models.ErrStaleCredential):
		WriteErrorWithCode(w, http.StatusForbidden, "recent login required", "stale_credential")
	case errors.Is(err, models.ErrValidation):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "validation")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// queryInt reads an integer query parameter, falling back when absent or invalid.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "cryptomarket-server",
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// --- Market handlers ---

func (s *Server) handleMarketAssets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := s.app.MarketService.Snapshot(r.Context())
	if err != nil {
		// Fail soft: the market screen renders an empty list, not an error
		s.logger.Warn().Err(err).Msg("Market snapshot unavailable")
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"assets":     []*models.Asset{},
			"fetched_at": nil,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets":     snapshot.Assets,
		"fetched_at": snapshot.FetchedAt,
	})
}

func (s *Server) handleMarketPrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	prices := map[string]models.AssetQuote{}
	if snapshot, err := s.app.MarketService.Snapshot(r.Context()); err == nil {
		prices = models.PriceMap(snapshot.Assets)
	} else {
		s.logger.Warn().Err(err).Msg("Market prices unavailable")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": prices,
	})
}

func (s *Server) handleAssetDetail(w http.ResponseWriter, r *http.Request, assetID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	detail, err := s.app.MarketService.GetAssetDetail(r.Context(), assetID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error fetching asset detail: %v", err))
		return
	}
	if detail == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %s", assetID))
		return
	}

	WriteJSON(w, http.StatusOK, detail)
}

func (s *Server) handleAssetChart(w http.ResponseWriter, r *http.Request, assetID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	days := queryInt(r, "days", 7)
	png, err := s.app.MarketService.RenderTrendChart(r.Context(), assetID, days)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Chart unavailable for %s: %v", assetID, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// --- News handlers ---

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryInt(r, "limit", 30)
	articles, err := s.app.MarketService.GetNews(r.Context(), limit)
	if err != nil {
		// Fail soft: news is decorative, an outage renders an empty list
		s.logger.Warn().Err(err).Msg("News unavailable")
		articles = []*models.Article{}
	}
	if articles == nil {
		articles = []*models.Article{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
	})
}

// --- Wallet handlers ---

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	wallet, err := s.app.PortfolioService.GetWallet(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleWalletHoldings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleHoldingsList(w, r)
	case http.MethodPost:
		s.handleHoldingAdd(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleHoldingsList(w http.ResponseWriter, r *http.Request) {
	userID := common.ResolveUserID(r.Context())
	holdings, err := s.app.PortfolioService.GetHoldings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
	})
}

func (s *Server) handleHoldingAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetID  string `json:"asset_id"`
		Quantity string `json:"quantity"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	holding, err := s.app.PortfolioService.AddHolding(r.Context(), userID, req.AssetID, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"holding": holding,
	})
}

// --- Feed handlers ---

func (s *Server) handleFeedMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleFeedList(w, r)
	case http.MethodPost:
		s.handleFeedPost(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleFeedList(w http.ResponseWriter, r *http.Request) {
	messages, err := s.app.FeedService.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing messages: %v", err))
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

func (s *Server) handleFeedPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	msg, err := s.app.FeedService.Post(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "ok",
		"message": msg,
	})
}
