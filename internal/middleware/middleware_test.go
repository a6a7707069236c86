package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velixa/storefront/internal/auth"
	"github.com/velixa/storefront/internal/models"
)

type userMap map[uuid.UUID]*models.User

func (m userMap) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", 1)
	admin := &models.User{ID: uuid.New(), Email: "a@shop.qa", Role: models.RoleAdmin}
	shopper := &models.User{ID: uuid.New(), Email: "s@shop.qa", Role: models.RoleCustomer}
	users := userMap{admin.ID: admin, shopper.ID: shopper}

	r := gin.New()
	r.Use(JWT(jwtSvc, users, nil))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserID).(uuid.UUID).String())
	})
	r.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	bearer := func(path, token string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}
	tokenFor := func(id uuid.UUID, role string) string {
		tok, err := jwtSvc.Generate(id, "x@shop.qa", role)
		require.NoError(t, err)
		return tok
	}

	assert.Equal(t, http.StatusUnauthorized, serve(r, bearer("/me", "")).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	assert.Equal(t, http.StatusForbidden, serve(r, bearer("/me", "garbage")).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, bearer("/me", tokenFor(uuid.New(), "customer"))).Code)

	w := serve(r, bearer("/me", tokenFor(shopper.ID, "customer")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, shopper.ID.String(), w.Body.String())

	// role is taken from the stored user, not the token claim
	assert.Equal(t, http.StatusForbidden, serve(r, bearer("/admin", tokenFor(shopper.ID, "admin"))).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, bearer("/admin", tokenFor(admin.ID, "admin"))).Code)
}

type brokenRates struct{}

func (brokenRates) Rate(context.Context, string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, errors.New("redis down")
}

func TestCurrency(t *testing.T) {
	rates := StaticRates{"USD": decimal.RequireFromString("0.27")}
	cases := []struct {
		name     string
		source   RateSource
		query    string
		header   string
		currency string
		rate     string
	}{
		{"default", rates, "", "", "QAR", "1"},
		{"query", rates, "usd", "", "USD", "0.27"},
		{"header", rates, "", "USD", "USD", "0.27"},
		{"unknown", rates, "XYZ", "", "QAR", "1"},
		{"lookup error", brokenRates{}, "USD", "", "QAR", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotCurrency string
			var gotRate decimal.Decimal
			r := gin.New()
			r.Use(Currency("QAR", tc.source, nil))
			r.GET("/", func(c *gin.Context) {
				gotCurrency, gotRate = CurrencyFrom(c)
			})
			req := httptest.NewRequest(http.MethodGet, "/?currency="+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("X-Currency", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.currency, gotCurrency)
			assert.Equal(t, tc.currency, w.Header().Get(CurrencyHeader))
			assert.True(t, gotRate.Equal(decimal.RequireFromString(tc.rate)), gotRate.String())
		})
	}
}

func TestCurrencyFrom_Default(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	currency, rate := CurrencyFrom(c)
	assert.Equal(t, DefaultCurrency, currency)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://shop.local, https://admin.shop.local/"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name      string
		method    string
		origin    string
		preflight bool
		status    int
		allowed   string
	}{
		{"preflight allowed", http.MethodOptions, "http://shop.local", true, http.StatusNoContent, "http://shop.local"},
		{"trailing slash configured", http.MethodOptions, "https://admin.shop.local", true, http.StatusNoContent, "https://admin.shop.local"},
		{"preflight foreign origin", http.MethodOptions, "http://evil.local", true, http.StatusForbidden, ""},
		{"simple request", http.MethodGet, "http://shop.local", false, http.StatusOK, "http://shop.local"},
		{"foreign simple request", http.MethodGet, "http://evil.local", false, http.StatusOK, ""},
		{"no origin", http.MethodGet, "", false, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/x", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := serve(r, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.allowed, w.Header().Get("Access-Control-Allow-Origin"))
			if tc.status == http.StatusNoContent {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), CurrencyHeader)
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS("*"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://anywhere.local")
	w := serve(r, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, CurrencyHeader, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, w.Header().Get("Vary"))
}
