package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AmineZmarrou/cryptomarket/internal/app"
	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
	"github.com/AmineZmarrou/cryptomarket/internal/services/feed"
	"github.com/AmineZmarrou/cryptomarket/internal/services/portfolio"
)

// --- In-memory stores ---

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (s *memUserStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID], nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserID] = user
	return nil
}

func (s *memUserStore) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

type memPortfolioStore struct {
	mu       sync.Mutex
	holdings map[string]map[string]*models.Holding
}

func newMemPortfolioStore() *memPortfolioStore {
	return &memPortfolioStore{holdings: map[string]map[string]*models.Holding{}}
}

func (s *memPortfolioStore) GetHoldings(_ context.Context, userID string) ([]*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Holding{}
	for _, h := range s.holdings[userID] {
		out = append(out, h)
	}
	return out, nil
}

func (s *memPortfolioStore) GetHolding(_ context.Context, userID, assetID string) (*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.holdings[userID]; ok {
		return m[assetID], nil
	}
	return nil, nil
}

func (s *memPortfolioStore) AddQuantity(_ context.Context, userID, assetID string, delta float64) (*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdings[userID] == nil {
		s.holdings[userID] = map[string]*models.Holding{}
	}
	h, ok := s.holdings[userID][assetID]
	if !ok {
		h = &models.Holding{UserID: userID, AssetID: assetID}
		s.holdings[userID][assetID] = h
	}
	h.Quantity += delta
	h.UpdatedAt = time.Now()
	return h, nil
}

type memMessageStore struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (s *memMessageStore) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	stored := *msg
	stored.ID = "msg_" + uuid.New().String()[:8]
	stored.CreatedAt = &now
	s.messages = append(s.messages, &stored)
	return &stored, nil
}

func (s *memMessageStore) List(_ context.Context) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, len(s.messages))
	copy(out, s.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(*out[j].CreatedAt)
	})
	return out, nil
}

func (s *memMessageStore) Subscribe(ctx context.Context) (<-chan []*models.Message, func(), error) {
	ch := make(chan []*models.Message, 1)
	list, _ := s.List(ctx)
	ch <- list
	var once sync.Once
	release := func() { once.Do(func() { close(ch) }) }
	return ch, release, nil
}

type memStorage struct {
	users     *memUserStore
	portfolio *memPortfolioStore
	messages  *memMessageStore
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:     newMemUserStore(),
		portfolio: newMemPortfolioStore(),
		messages:  &memMessageStore{},
	}
}

func (s *memStorage) UserStore() interfaces.UserStore           { return s.users }
func (s *memStorage) PortfolioStore() interfaces.PortfolioStore { return s.portfolio }
func (s *memStorage) MessageStore() interfaces.MessageStore     { return s.messages }
func (s *memStorage) Close() error                              { return nil }

// --- Stub market service ---

type stubMarketService struct {
	snapshot *models.MarketSnapshot
	detail   *models.AssetDetail
	news     []*models.Article
	png      []byte
	err      error
}

func (m *stubMarketService) Snapshot(context.Context) (*models.MarketSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

func (m *stubMarketService) Refresh(ctx context.Context) (*models.MarketSnapshot, error) {
	return m.Snapshot(ctx)
}

func (m *stubMarketService) GetAssetDetail(context.Context, string) (*models.AssetDetail, error) {
	return m.detail, nil
}

func (m *stubMarketService) RenderTrendChart(context.Context, string, int) ([]byte, error) {
	if m.png == nil {
		return nil, errors.New("no chart data")
	}
	return m.png, nil
}

func (m *stubMarketService) GetNews(_ context.Context, limit int) ([]*models.Article, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.news) > limit {
		return m.news[:limit], nil
	}
	return m.news, nil
}

func (m *stubMarketService) OnRefresh(func(*models.MarketSnapshot)) {}

func defaultMarketStub() *stubMarketService {
	return &stubMarketService{
		snapshot: &models.MarketSnapshot{
			Assets: []*models.Asset{
				{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 60000, MarketCapRank: 1},
				{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3000, MarketCapRank: 2},
			},
			FetchedAt: time.Now().UTC(),
		},
	}
}

// --- Test server ---

type testEnv struct {
	srv     *Server
	storage *memStorage
	market  *stubMarketService
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	logger := common.NewSilentLogger()
	cfg := common.NewDefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"

	storage := newMemStorage()
	marketSvc := defaultMarketStub()

	a := &app.App{
		Config:           cfg,
		Logger:           logger,
		Storage:          storage,
		MarketService:    marketSvc,
		PortfolioService: portfolio.NewService(storage, marketSvc, logger),
		FeedService:      feed.NewService(storage, logger),
		StartupTime:      time.Now(),
	}

	return &testEnv{
		srv:     NewServer(a),
		storage: storage,
		market:  marketSvc,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// registerUser creates an account through the API and returns its token.
func (e *testEnv) registerUser(t *testing.T, email, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("registerUser: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("registerUser: failed to decode response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Fatal("registerUser: empty token")
	}
	return resp.Data.Token
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}
