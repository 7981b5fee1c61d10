package server

import (
	"net/http"
	"strings"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/password-reset", s.handlePasswordReset)
	mux.HandleFunc("/api/auth/google", s.handleAuthGoogle)
	mux.HandleFunc("/api/auth/validate", s.handleAuthValidate)

	// Account
	mux.HandleFunc("/api/users/me/email", s.handleChangeEmail)
	mux.HandleFunc("/api/users/me/password", s.handleChangePassword)

	// Market data
	mux.HandleFunc("/api/market/assets/", s.routeMarketAssets)
	mux.HandleFunc("/api/market/assets", s.handleMarketAssets)
	mux.HandleFunc("/api/market/prices", s.handleMarketPrices)

	// News
	mux.HandleFunc("/api/news", s.handleNews)

	// Wallet
	mux.HandleFunc("/api/wallet/holdings", s.handleWalletHoldings)
	mux.HandleFunc("/api/wallet", s.handleWallet)

	// Community feed
	mux.HandleFunc("/api/feed/messages", s.handleFeedMessages)

	// WebSocket
	mux.HandleFunc("/api/ws/market", s.handleMarketWS)
	mux.HandleFunc("/api/ws/feed", s.handleFeedWS)
}

// routeMarketAssets dispatches /api/market/assets/{id}[/chart.png] to the
// appropriate handler.
func (s *Server) routeMarketAssets(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/market/assets/")
	if path == "" {
		s.handleMarketAssets(w, r)
		return
	}

	if strings.HasSuffix(path, "/chart.png") {
		assetID := PathParam(r, "/api/market/assets/", "/chart.png")
		s.handleAssetChart(w, r, assetID)
		return
	}

	if strings.Contains(path, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleAssetDetail(w, r, path)
}
