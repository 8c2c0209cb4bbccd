package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/auth/authctx"
	"github.com/kbukum/apikit/auth/jwt"
	"github.com/kbukum/apikit/authz"
	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/server/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorBody {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	return body.Error
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_Panic(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.Recovery(logger.Nop()))
	engine.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := serve(engine, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := decodeError(t, rr).Code; got != apperrors.ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		reqID    string
		corrID   string
		wantCorr string
	}{
		{"generated", "", "", ""},
		{"preserved", "req-1", "", "req-1"},
		{"explicit correlation", "req-1", "corr-9", "corr-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			engine := gin.New()
			engine.Use(middleware.RequestID())
			engine.GET("/", func(c *gin.Context) {
				seen = logger.CorrelationIDFromContext(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.reqID != "" {
				req.Header.Set(middleware.HeaderRequestID, tt.reqID)
			}
			if tt.corrID != "" {
				req.Header.Set(middleware.HeaderCorrelationID, tt.corrID)
			}
			rr := serve(engine, req)

			id := rr.Header().Get(middleware.HeaderRequestID)
			if id == "" {
				t.Fatal("expected X-Request-Id in response headers")
			}
			want := tt.wantCorr
			if want == "" {
				want = id
			}
			if seen != want {
				t.Errorf("expected correlation id %q in context, got %q", want, seen)
			}
			if got := rr.Header().Get(middleware.HeaderCorrelationID); got != want {
				t.Errorf("expected correlation header %q, got %q", want, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	engine := gin.New()
	engine.Use(middleware.RequestLogger(log))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/orders", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(engine, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if buf.Len() != 0 {
		t.Errorf("expected health checks to be skipped, got %s", buf.String())
	}

	serve(engine, httptest.NewRequest(http.MethodGet, "/orders?top=1", http.NoBody))
	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"status":404`, `"path":"/orders?top=1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

// ---------------------------------------------------------------------------
// Principal
// ---------------------------------------------------------------------------

func newJWT(t *testing.T) *jwt.Service[*jwt.Claims] {
	t.Helper()
	svc, err := jwt.NewService(&jwt.Config{Secret: "s3cret"}, func() *jwt.Claims { return &jwt.Claims{} })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func principalEngine(cfg middleware.PrincipalConfig, seen **auth.Principal) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Principal(cfg))
	handler := func(c *gin.Context) {
		p, _ := authctx.Principal(c.Request.Context())
		*seen = p
		c.Status(http.StatusOK)
	}
	engine.GET("/api/orders", handler)
	engine.GET("/health", handler)
	return engine
}

func TestPrincipal_ValidToken(t *testing.T) {
	svc := newJWT(t)
	token, err := svc.Sign(jwt.UserClaims(&auth.Principal{Subject: "alice", TenantID: "contoso"}, []string{"orders.read"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen *auth.Principal
	engine := principalEngine(middleware.PrincipalConfig{Parser: middleware.JWTParser(svc)}, &seen)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := serve(engine, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if seen == nil || seen.Subject != "alice" || seen.TenantID != "contoso" {
		t.Fatalf("expected principal alice@contoso, got %+v", seen)
	}
	if !seen.HasScope("orders.read") {
		t.Errorf("expected scope orders.read, got %v", seen.Scopes)
	}
}

func TestPrincipal_Rejections(t *testing.T) {
	failing := func(string) (*auth.Principal, error) { return nil, errors.New("bad token") }
	tests := []struct {
		name     string
		cfg      middleware.PrincipalConfig
		path     string
		header   string
		wantCode int
	}{
		{"missing header", middleware.PrincipalConfig{Parser: failing}, "/api/orders", "", http.StatusUnauthorized},
		{"wrong scheme", middleware.PrincipalConfig{Parser: failing}, "/api/orders", "Basic abc", http.StatusUnauthorized},
		{"invalid token", middleware.PrincipalConfig{Parser: failing}, "/api/orders", "Bearer x", http.StatusUnauthorized},
		{"invalid token optional", middleware.PrincipalConfig{Parser: failing, Optional: true}, "/api/orders", "Bearer x", http.StatusUnauthorized},
		{"anonymous optional", middleware.PrincipalConfig{Parser: failing, Optional: true}, "/api/orders", "", http.StatusOK},
		{"skipped path", middleware.PrincipalConfig{Parser: failing, SkipPaths: []string{"/health"}}, "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *auth.Principal
			engine := principalEngine(tt.cfg, &seen)
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(engine, req)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if got := decodeError(t, rr).Code; got != apperrors.ErrCodeUnauthorized {
					t.Errorf("expected UNAUTHORIZED, got %s", got)
				}
			}
			if seen != nil {
				t.Errorf("expected no principal, got %+v", seen)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Authorize
// ---------------------------------------------------------------------------

func TestAuthorize(t *testing.T) {
	checker := authz.NewMapChecker(map[string][]string{
		authz.SubjectAnonymous: {"status:read"},
		"orders.writer":        {"orders:*"},
	})
	writer := &auth.Principal{Subject: "alice", Scopes: []string{"orders.writer"}}
	reader := &auth.Principal{Subject: "bob", Scopes: []string{"orders.read"}}

	tests := []struct {
		name     string
		p        *auth.Principal
		method   string
		path     string
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{"anonymous granted", nil, http.MethodGet, "/api/status/ping", http.StatusOK, ""},
		{"anonymous denied", nil, http.MethodGet, "/api/orders/1", http.StatusUnauthorized, apperrors.ErrCodeUnauthorized},
		{"scope granted", writer, http.MethodPost, "/api/orders/1", http.StatusOK, ""},
		{"scope denied", reader, http.MethodPost, "/api/orders/1", http.StatusForbidden, apperrors.ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(func(c *gin.Context) {
				if tt.p != nil {
					c.Request = c.Request.WithContext(authctx.WithPrincipal(c.Request.Context(), tt.p))
				}
			})
			engine.Any("/api/:service/*path", middleware.Authorize(checker, nil), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			rr := serve(engine, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantErr != "" {
				if got := decodeError(t, rr).Code; got != tt.wantErr {
					t.Errorf("expected %s, got %s", tt.wantErr, got)
				}
			}
		})
	}
}
