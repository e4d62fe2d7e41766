package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-quote/internal/config"
	"github.com/sells-group/site-quote/internal/engine"
	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
	"github.com/sells-group/site-quote/internal/store"
)

const testToken = "s3cret"

type failingSource struct{}

func (failingSource) LoadPricing(context.Context) (pricing.Table, error) {
	return nil, errors.New("database is locked")
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:           8080,
		AdminToken:     testToken,
		AllowedOrigins: []string{"*"},
		RateLimit:      config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return New(engine.New(engine.Options{}), st, st, cfg, "USD"), st
}

func storeQuestionnaire() model.Questionnaire {
	return model.Questionnaire{
		BusinessName:   "Acme Goods",
		BusinessType:   "Online Store",
		SellingOnline:  "Yes",
		ProductCount:   "50",
		PaymentMethods: []string{"Credit Card", "PayPal", "Apple Pay"},
		Timeline:       "ASAP",
		Budget:         "Standard",
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetPricing(t *testing.T) {
	srv, st := newTestServer(t, testServerConfig())
	eur := decimal.NewFromInt(450)
	require.NoError(t, st.PutCurrencyPricing(context.Background(), "EUR",
		pricing.Entry{Setup: pricing.PackagePrices{Static: &eur}}))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/pricing/eur", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got pricing.Resolved
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "EUR", got.Currency)
	assert.True(t, got.Setup.Static.Equal(eur))
	assert.NotEmpty(t, got.Fallbacks)
}

func TestGetPricing_UnknownCurrencyResolvesAsUSD(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/pricing/XYZ", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got pricing.Resolved
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "XYZ", got.Requested)
}

func TestPreviewQuote(t *testing.T) {
	srv, st := newTestServer(t, testServerConfig())
	_, err := st.ImportPricing(context.Background(), pricing.DefaultTable())
	require.NoError(t, err)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/quotes/preview",
		QuoteRequest{Questionnaire: storeQuestionnaire()}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.LeadID)
	assert.Equal(t, model.PackageEcommerce, resp.Recommendation.Package)
	assert.Equal(t, "USD", resp.Quote.Currency)
	assert.True(t, resp.Quote.FinalPrice.GreaterThan(resp.Quote.BasePrice))
	assert.True(t, strings.HasPrefix(resp.FinalPriceDisplay, "USD "))

	leads, err := st.ListLeads(context.Background(), store.LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestPreviewQuote_Incomplete(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())

	q := storeQuestionnaire()
	q.BusinessType = ""
	q.Budget = "  "

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/quotes/preview", QuoteRequest{Questionnaire: q}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"businessType", "budget"}, resp.Missing)
}

func TestPreviewQuote_BadJSON(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/quotes/preview", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewQuote_PricingUnavailable(t *testing.T) {
	srv := New(engine.New(engine.Options{}), failingSource{}, newTestStore(t), testServerConfig(), "USD")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/quotes/preview",
		QuoteRequest{Questionnaire: storeQuestionnaire()}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateQuote_SavesLead(t *testing.T) {
	srv, st := newTestServer(t, testServerConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/quotes", QuoteRequest{
		Contact:       model.Contact{Name: "Jane Doe", Email: "jane@example.com"},
		Questionnaire: storeQuestionnaire(),
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.LeadID)

	lead, err := st.GetLead(context.Background(), resp.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", lead.Contact.Name)
	assert.True(t, lead.Quote.FinalPrice.Equal(resp.Quote.FinalPrice))

	// Admin read-back.
	rec = doJSON(t, h, http.MethodGet, "/api/quotes/"+resp.LeadID, nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, resp.LeadID, got.ID)
}

func TestCreateQuote_RequiresContact(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/quotes",
		QuoteRequest{Questionnaire: storeQuestionnaire()}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"contact.name", "contact.email"}, resp.Missing)
}

func TestCreateQuote_RateLimited(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	body := QuoteRequest{
		Contact:       model.Contact{Name: "Jane", Email: "jane@example.com"},
		Questionnaire: storeQuestionnaire(),
	}
	assert.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/quotes", body, "").Code)

	rec := doJSON(t, h, http.MethodPost, "/api/quotes", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Preview is not limited.
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/api/quotes/preview", body, "").Code)
}

func postQuoteFrom(t *testing.T, h http.Handler, forwardedFor string) int {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(QuoteRequest{
		Contact:       model.Contact{Name: "Jane", Email: "jane@example.com"},
		Questionnaire: storeQuestionnaire(),
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestCreateQuote_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	accepted := 0
	for i := 0; i < 20; i++ {
		if postQuoteFrom(t, h, fmt.Sprintf("203.0.113.%d", i+1)) == http.StatusCreated {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, srv.limiter.size())
}

func TestCreateQuote_TrustedProxyHeaders(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	cfg.TrustProxyHeaders = true
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	assert.Equal(t, http.StatusCreated, postQuoteFrom(t, h, "203.0.113.1"))
	assert.Equal(t, http.StatusCreated, postQuoteFrom(t, h, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, postQuoteFrom(t, h, "203.0.113.1"))
}

func TestClientLimiter_Bounded(t *testing.T) {
	l := newClientLimiter(1, 1)
	l.maxClients = 3
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		l.get(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 3, l.size())

	// Least recently seen clients are the ones dropped.
	l.mu.Lock()
	_, newest := l.clients["10.0.0.9"]
	_, oldest := l.clients["10.0.0.0"]
	l.mu.Unlock()
	assert.True(t, newest)
	assert.False(t, oldest)
}

func TestClientLimiter_EvictsIdle(t *testing.T) {
	l := newClientLimiter(1, 1)
	l.maxClients = 3
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		l.get(k)
	}
	now = now.Add(l.idleTTL)
	l.get("d")
	assert.Equal(t, 1, l.size())
}

func TestClientLimiter_IdleCoversRefill(t *testing.T) {
	l := newClientLimiter(0.001, 1)
	assert.GreaterOrEqual(t, l.idleTTL, 999*time.Second)
	assert.Equal(t, limiterIdleTTL, newClientLimiter(2, 5).idleTTL)
}

func TestAdminAuth(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		cfg := testServerConfig()
		cfg.AdminToken = ""
		srv, _ := newTestServer(t, cfg)
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/quotes", nil, "anything")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		srv, _ := newTestServer(t, testServerConfig())
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/quotes", nil, "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		srv, _ := newTestServer(t, testServerConfig())
		rec := doJSON(t, srv.Handler(), http.MethodDelete, "/api/pricing/EUR", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListQuotes(t *testing.T) {
	srv, st := newTestServer(t, testServerConfig())
	ctx := context.Background()

	for _, pkg := range []model.PackageType{model.PackageStatic, model.PackageEcommerce, model.PackageEcommerce} {
		require.NoError(t, st.SaveLead(ctx, &model.Lead{
			Contact:        model.Contact{Name: "x", Email: "x@example.com"},
			Recommendation: model.Recommendation{Package: pkg},
			Quote:          model.Quote{Package: pkg, Currency: "USD"},
		}))
	}
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/quotes?package=Ecommerce", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var leads []model.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	assert.Len(t, leads, 2)

	rec = doJSON(t, h, http.MethodGet, "/api/quotes?limit=1&offset=1", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	assert.Len(t, leads, 1)

	tests := []string{"/api/quotes?package=enterprise", "/api/quotes?limit=-1", "/api/quotes?offset=abc"}
	for _, path := range tests {
		rec = doJSON(t, h, http.MethodGet, path, nil, testToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/quotes/missing", nil, testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutAndDeletePricing(t *testing.T) {
	srv, st := newTestServer(t, testServerConfig())
	h := srv.Handler()
	ctx := context.Background()

	setup := decimal.NewFromInt(1500)
	rec := doJSON(t, h, http.MethodPut, "/api/pricing/gbp",
		pricing.Entry{Setup: pricing.PackagePrices{Ecommerce: &setup}}, testToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	table, err := st.LoadPricing(ctx)
	require.NoError(t, err)
	require.Contains(t, table, "GBP")
	assert.True(t, table["GBP"].Setup.Ecommerce.Equal(setup))

	// The next quote in GBP picks the new setup price up.
	rec = doJSON(t, h, http.MethodPost, "/api/quotes/preview",
		QuoteRequest{Questionnaire: storeQuestionnaire(), Currency: "GBP"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GBP", resp.Quote.Currency)
	assert.True(t, resp.Quote.BasePrice.Equal(setup))

	rec = doJSON(t, h, http.MethodDelete, "/api/pricing/GBP", nil, testToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/pricing/GBP", nil, testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutPricing_Invalid(t *testing.T) {
	srv, _ := newTestServer(t, testServerConfig())
	h := srv.Handler()

	neg := decimal.NewFromInt(-5)
	rec := doJSON(t, h, http.MethodPut, "/api/pricing/USD",
		pricing.Entry{Setup: pricing.PackagePrices{Static: &neg}}, testToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/api/pricing/NOPE", pricing.Entry{}, testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	cfg := testServerConfig()
	cfg.AllowedOrigins = []string{"https://example.com"}
	srv, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/quotes/preview", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	cfg := testServerConfig()
	cfg.Port = 0
	cfg.ShutdownTimeoutSecs = 1
	srv, _ := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
