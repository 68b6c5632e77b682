package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userhistory/api/email"
	"userhistory/api/history"
	"userhistory/api/identity"
	"userhistory/api/logger"
	"userhistory/api/models"
	"userhistory/api/render"
	"userhistory/api/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeOrders is an in-memory order store.
type fakeOrders struct {
	orders   map[int64]models.Order
	history  map[int64][]models.RawEntry
	migrated []int64
	failing  bool
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders: map[int64]models.Order{
			1: {ID: 1, Number: "1001", Email: "a@example.com", Status: models.OrderStatusComplete, Total: decimal.NewFromInt(30), CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		},
		history: map[int64][]models.RawEntry{},
	}
}

func (f *fakeOrders) Get(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", store.ErrOrderNotFound, id)
	}
	return &o, nil
}

func (f *fakeOrders) History(_ context.Context, id int64) ([]models.RawEntry, error) {
	return f.history[id], nil
}

func (f *fakeOrders) CustomerOrders(_ context.Context, email string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.Email == email {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) AttachHistory(_ context.Context, id int64, entries []models.Entry) error {
	if f.failing {
		return errors.New("db down")
	}
	raw := make([]models.RawEntry, 0, len(entries))
	for _, e := range entries {
		raw = append(raw, models.CurrentEntry(e))
	}
	f.history[id] = raw
	return nil
}

func (f *fakeOrders) SearchByHistory(_ context.Context, term string) ([]models.Order, error) {
	var out []models.Order
	for id, raw := range f.history {
		for _, r := range raw {
			if strings.Contains(r.URL, term) {
				out = append(out, f.orders[id])
				break
			}
		}
	}
	return out, nil
}

func (f *fakeOrders) MigrateLegacyHistory(_ context.Context, id int64) (bool, error) {
	f.migrated = append(f.migrated, id)
	return id == 1, nil
}

type recordingJournal struct {
	events []models.VisitEvent
}

func (j *recordingJournal) RecordVisits(_ context.Context, events []models.VisitEvent) error {
	j.events = append(j.events, events...)
	return nil
}

func (j *recordingJournal) SessionVisits(_ context.Context, token string, limit uint64) ([]models.VisitEvent, error) {
	var out []models.VisitEvent
	for _, e := range j.events {
		if e.Token == token {
			out = append(out, e)
		}
	}
	if uint64(len(out)) > limit {
		out = out[uint64(len(out))-limit:]
	}
	return out, nil
}

type staffByEmail map[string]*models.StaffUser

func (s staffByEmail) GetStaffByEmail(_ context.Context, email string) (*models.StaffUser, error) {
	if u, ok := s[email]; ok {
		return u, nil
	}
	return nil, store.ErrStaffNotFound
}

type testServer struct {
	router  *gin.Engine
	orders  *fakeOrders
	journal *recordingJournal
	store   *store.MemoryHistoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	hs := store.NewMemoryHistoryStore()
	orders := newFakeOrders()
	journal := &recordingJournal{}
	issuer := identity.NewIssuer(identity.Options{})

	tracker := history.NewTracker(hs, log)
	views := render.NewViews(orders, render.NewFormatter(0, "USD"))
	tags := email.NewRegistry(views)

	track := NewTrackHandlers(tracker, issuer, journal, log)
	checkout := NewCheckoutHandlers(history.NewCheckout(hs, orders, issuer, log), nil, log)
	admin := NewAdminHandlers(views, orders, tags, log)

	r := gin.New()
	r.POST("/api/track", track.TrackVisit)
	r.DELETE("/api/history", track.ResetHistory)
	r.GET("/api/debug/history", track.DebugHistory)
	r.POST("/api/orders/:id/complete", checkout.CompleteOrder)
	r.GET("/api/admin/orders/search", admin.SearchOrders)
	r.GET("/api/admin/orders/:id/history", admin.OrderHistoryHTML)
	r.GET("/api/admin/orders/:id/history.json", admin.OrderHistoryJSON)
	r.POST("/api/admin/orders/:id/migrate", admin.MigrateOrder)
	r.GET("/api/admin/email/tags", admin.EmailTags)
	r.POST("/api/admin/email/preview", admin.EmailPreview)

	return &testServer{router: r, orders: orders, journal: journal, store: hs}
}

func (s *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func visitorCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == identity.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", identity.DefaultCookieName)
	return nil
}

func TestTrackVisitIssuesCookieAndRecords(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/a","timestamp":1000,"referrer":"https://google.com/?q=widgets"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"tracked":true}`, w.Body.String())

	cookie := visitorCookie(t, w)
	h, err := s.store.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "https://google.com/?q=widgets", h.Referrer.URL)
	assert.Equal(t, []models.Entry{{URL: "https://shop.test/a", Time: 1000}}, h.Pages)

	require.Len(t, s.journal.events, 1)
	assert.Equal(t, cookie.Value, s.journal.events[0].Token)
	assert.NotEmpty(t, s.journal.events[0].EventID)
}

func TestTrackVisitReusesCookie(t *testing.T) {
	s := newTestServer(t)
	cookie := &http.Cookie{Name: identity.DefaultCookieName, Value: "visitor01"}

	s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/a","timestamp":1000}`, cookie)
	w := s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/b","timestamp":1010}`, cookie)
	assert.Empty(t, w.Result().Cookies())

	h, _ := s.store.Get(context.Background(), "visitor01")
	require.NotNil(t, h)
	assert.Equal(t, models.DirectTraffic, h.Referrer.URL)
	assert.Len(t, h.Pages, 2)
}

func TestTrackVisitRequiresURL(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/track", `{"timestamp":1000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteOrderAttachesHistory(t *testing.T) {
	s := newTestServer(t)
	cookie := &http.Cookie{Name: identity.DefaultCookieName, Value: "visitor01"}
	s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/a","timestamp":1000,"referrer":"https://google.com/?q=widgets"}`, cookie)

	w := s.do(http.MethodPost, "/api/orders/1/complete", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id":1,"history_attached":true,"entries":3}`, w.Body.String())

	require.Len(t, s.orders.history[1], 3)
	assert.Equal(t, models.OrderComplete, s.orders.history[1][2].URL)

	expired := visitorCookie(t, w)
	assert.True(t, expired.MaxAge < 0)
	h, _ := s.store.Get(context.Background(), "visitor01")
	assert.Nil(t, h)
}

func TestCompleteOrderNeverFailsPurchase(t *testing.T) {
	s := newTestServer(t)
	s.orders.failing = true
	cookie := &http.Cookie{Name: identity.DefaultCookieName, Value: "visitor01"}
	s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/a","timestamp":1000}`, cookie)

	w := s.do(http.MethodPost, "/api/orders/1/complete", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"history_attached":false`)
	assert.Contains(t, w.Body.String(), `"warning"`)
}

func TestCompleteOrderRejectsBadID(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/orders/abc/complete", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/orders/0/complete", "").Code)
}

func TestResetHistory(t *testing.T) {
	s := newTestServer(t)
	cookie := &http.Cookie{Name: identity.DefaultCookieName, Value: "visitor01"}
	s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/a","timestamp":1000}`, cookie)

	w := s.do(http.MethodDelete, "/api/history", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, visitorCookie(t, w).MaxAge < 0)

	h, _ := s.store.Get(context.Background(), "visitor01")
	assert.Nil(t, h)
}

func TestDebugHistory(t *testing.T) {
	s := newTestServer(t)
	cookie := &http.Cookie{Name: identity.DefaultCookieName, Value: "visitor01"}
	s.do(http.MethodPost, "/api/track", `{"url":"https://shop.test/a","timestamp":1000}`, cookie)

	w := s.do(http.MethodGet, "/api/debug/history", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"visitor01"`)
	assert.Contains(t, w.Body.String(), `{"url":"https://shop.test/a","time":1000}`)

	var body struct {
		Journal []models.VisitEvent `json:"journal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Journal, 1)
	assert.Equal(t, "visitor01", body.Journal[0].Token)
	assert.Equal(t, "https://shop.test/a", body.Journal[0].PageURL)
}

func TestDebugHistoryWithoutToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/debug/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":null,"history":null,"journal":null}`, w.Body.String())
}

func TestOrderHistoryHTML(t *testing.T) {
	s := newTestServer(t)
	s.orders.history[1] = []models.RawEntry{
		{URL: "https://google.com/?q=widgets", Time: 1000},
		{URL: "https://shop.test/a", Time: 1000},
		{URL: models.OrderComplete, Time: 1100},
	}

	w := s.do(http.MethodGet, "/api/admin/orders/1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "Customer Browsing History")
	assert.Contains(t, body, "<mark>widgets</mark>")
	assert.Contains(t, body, "Actual Lifetime Customer Value")
	assert.Contains(t, body, "$30.00")
}

func TestOrderHistoryNotFound(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/admin/orders/99/history", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/admin/orders/99/history.json", "").Code)
}

func TestOrderHistoryJSON(t *testing.T) {
	s := newTestServer(t)
	s.orders.history[1] = []models.RawEntry{models.LegacyEntry("/page1"), models.LegacyEntry("/page2"), models.LegacyEntry("/page3")}

	w := s.do(http.MethodGet, "/api/admin/orders/1/history.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"referrer":"/page1"`)
	assert.Contains(t, body, `"timestamp":"N/A"`)
	assert.Contains(t, body, `"lifetime_value":"$30.00"`)
}

func TestSearchOrders(t *testing.T) {
	s := newTestServer(t)
	s.orders.history[1] = []models.RawEntry{{URL: "https://shop.test/widgets", Time: 1}}

	w := s.do(http.MethodGet, "/api/admin/orders/search?s=widgets", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":"1001"`)

	w = s.do(http.MethodGet, "/api/admin/orders/search?s=nothing", "")
	assert.Contains(t, w.Body.String(), `"orders":[]`)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/admin/orders/search?s=+", "").Code)
}

func TestMigrateOrder(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/admin/orders/1/migrate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id":1,"migrated":true}`, w.Body.String())
	assert.Equal(t, []int64{1}, s.orders.migrated)
}

func TestEmailTagsAndPreview(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/admin/email/tags", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tag":"{browsing_history}"`)

	w = s.do(http.MethodPost, "/api/admin/email/preview", `{"order_id":1,"template":"<p>Thanks</p>{purchase_history}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<p>Thanks</p><h2>Customer Purchase History</h2>")

	w = s.do(http.MethodPost, "/api/admin/email/preview", `{"template":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndLogout(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthHandlers(staffByEmail{
		"staff@example.com": {ID: 3, Email: "staff@example.com", HashedPassword: hash},
	}, logger.Nop())

	r := gin.New()
	r.POST("/api/login", auth.Login)
	r.POST("/api/logout", auth.Logout)

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := login(`{"email":"staff@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt_token", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)

	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"staff@example.com","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"nobody@example.com","password":"hunter22"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(`{"email":"not-an-email"}`).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, w.Result().Cookies()[0].MaxAge < 0)
}
