package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type apiEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type routerFixture struct {
	engine *gin.Engine
	mr     *miniredis.Miniredis
}

func setupRouterTest(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis failed: %v", err)
	}
	t.Cleanup(mr.Close)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("parse miniredis port failed: %v", err)
	}

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := models.OpenDB("sqlite", dsn, models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, false)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		App:    config.AppConfig{Name: "FastShip", Domain: "fastship.test"},
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{SecretKey: "router-test-secret", ExpireHours: 1},
		Redis:  config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port, Prefix: "fs"},
		Security: config.SecurityConfig{
			LoginRateLimit: config.RateLimitConfig{WindowSeconds: 60, MaxAttempts: 20, BlockSeconds: 60},
			MinPasswordLen: 8,
		},
		Shipment: config.ShipmentConfig{
			MaxWeightKG:             25,
			EstimatedDeliveryHours:  72,
			VerificationCodeTTLHour: 24,
			ReviewTokenDays:         30,
			ReviewSecret:            "router-review-secret",
		},
	}
	c, err := provider.NewContainer(cfg, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &routerFixture{engine: SetupRouter(cfg, c), mr: mr}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env apiEnvelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response failed: %v body=%s", method, path, err, w.Body.String())
		}
		if env.StatusCode != w.Code {
			t.Fatalf("%s %s: envelope status %d differs from http status %d", method, path, env.StatusCode, w.Code)
		}
	}
	return w, env
}

func (f *routerFixture) expect(t *testing.T, method, path, token string, body interface{}, want int) apiEnvelope {
	t.Helper()
	w, env := f.do(t, method, path, token, body)
	if w.Code != want {
		t.Fatalf("%s %s: want status %d got %d body=%s", method, path, want, w.Code, w.Body.String())
	}
	return env
}

func (f *routerFixture) login(t *testing.T, role, email string) string {
	t.Helper()
	env := f.expect(t, http.MethodPost, "/api/v1/"+role+"/login", "", gin.H{"email": email, "password": "supersecret"}, http.StatusOK)
	var result struct {
		Token     string `json:"access_token"`
		TokenType string `json:"token_type"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil || result.Token == "" {
		t.Fatalf("login response invalid: %v %s", err, string(env.Data))
	}
	if result.TokenType != "bearer" {
		t.Fatalf("token type want bearer got %s", result.TokenType)
	}
	return result.Token
}

func TestShipmentLifecycleOverHTTP(t *testing.T) {
	f := setupRouterTest(t)

	f.expect(t, http.MethodPost, "/api/v1/partner/signup", "", gin.H{
		"name":                  "Rapid Riders",
		"email":                 "rider@fastship.test",
		"password":              "supersecret",
		"max_handling_capacity": 2,
		"serviceable_zip_codes": []uint{11001},
	}, http.StatusCreated)
	f.expect(t, http.MethodPost, "/api/v1/seller/signup", "", gin.H{
		"name":     "Acme Store",
		"email":    "seller@fastship.test",
		"password": "supersecret",
		"zip_code": 11002,
	}, http.StatusCreated)
	f.expect(t, http.MethodPost, "/api/v1/seller/signup", "", gin.H{
		"name":     "Acme Store",
		"email":    "seller@fastship.test",
		"password": "supersecret",
	}, http.StatusConflict)

	sellerToken := f.login(t, "seller", "seller@fastship.test")
	partnerToken := f.login(t, "partner", "rider@fastship.test")

	f.expect(t, http.MethodGet, "/api/v1/seller/shipments", "", nil, http.StatusUnauthorized)
	f.expect(t, http.MethodGet, "/api/v1/partner/me", sellerToken, nil, http.StatusForbidden)

	env := f.expect(t, http.MethodPost, "/api/v1/seller/shipments", sellerToken, gin.H{
		"content":              "books",
		"weight":               "2.5",
		"destination":          11001,
		"client_contact_email": "client@fastship.test",
		"client_contact_phone": "612345678",
	}, http.StatusCreated)
	var shipment models.Shipment
	if err := json.Unmarshal(env.Data, &shipment); err != nil {
		t.Fatalf("decode shipment failed: %v", err)
	}
	if shipment.ID == "" || shipment.Status != "placed" || shipment.DeliveryPartnerID == "" {
		t.Fatalf("unexpected created shipment: %+v", shipment)
	}

	f.expect(t, http.MethodPost, "/api/v1/seller/shipments", sellerToken, gin.H{
		"content":              "books",
		"weight":               "1",
		"destination":          99999,
		"client_contact_email": "client@fastship.test",
		"client_contact_phone": "612345678",
	}, http.StatusNotAcceptable)
	f.expect(t, http.MethodPost, "/api/v1/seller/shipments", sellerToken, gin.H{
		"content":              "books",
		"weight":               "25.001",
		"destination":          11001,
		"client_contact_email": "client@fastship.test",
		"client_contact_phone": "612345678",
	}, http.StatusBadRequest)

	shipmentPath := "/api/v1/partner/shipments/" + shipment.ID
	f.expect(t, http.MethodPatch, shipmentPath, partnerToken, gin.H{"status": "delivered", "verification_code": "00000"}, http.StatusBadRequest)
	f.expect(t, http.MethodPatch, shipmentPath, partnerToken, gin.H{"status": "out_for_delivery"}, http.StatusOK)

	env = f.expect(t, http.MethodGet, "/api/v1/shipments/"+shipment.ID+"/track", "", nil, http.StatusOK)
	if !strings.Contains(string(env.Data), "out_for_delivery") {
		t.Fatalf("tracking should report out_for_delivery, got %s", string(env.Data))
	}

	code, err := f.mr.Get("fs:verification_code:" + shipment.ID)
	if err != nil || code == "" {
		t.Fatalf("verification code not stored: %v", err)
	}
	f.expect(t, http.MethodPatch, shipmentPath, partnerToken, gin.H{"status": "delivered", "verification_code": code}, http.StatusOK)
	f.expect(t, http.MethodPost, "/api/v1/seller/shipments/"+shipment.ID+"/cancel", sellerToken, nil, http.StatusBadRequest)

	env = f.expect(t, http.MethodGet, "/api/v1/seller/shipments/"+shipment.ID+"/timeline", sellerToken, nil, http.StatusOK)
	var events []models.ShipmentEvent
	if err := json.Unmarshal(env.Data, &events); err != nil {
		t.Fatalf("decode timeline failed: %v", err)
	}
	if len(events) != 3 || events[0].Status != "delivered" || events[2].Status != "placed" {
		t.Fatalf("unexpected timeline: %+v", events)
	}

	f.expect(t, http.MethodGet, "/api/v1/partner/shipments/"+shipment.ID+"/timeline", partnerToken, nil, http.StatusOK)
	f.expect(t, http.MethodGet, "/api/v1/seller/shipments/missing-id", sellerToken, nil, http.StatusNotFound)

	f.expect(t, http.MethodPost, "/api/v1/seller/logout", sellerToken, nil, http.StatusOK)
	f.expect(t, http.MethodGet, "/api/v1/seller/me", sellerToken, nil, http.StatusUnauthorized)

	w, _ := f.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fastship_shipments_created_total 1") {
		t.Fatalf("metrics should expose created counter, got %d", w.Code)
	}
}

func TestPartnerProfileAndTagsOverHTTP(t *testing.T) {
	f := setupRouterTest(t)

	f.expect(t, http.MethodPost, "/api/v1/partner/signup", "", gin.H{
		"name":                  "Rapid Riders",
		"email":                 "rider@fastship.test",
		"password":              "supersecret",
		"max_handling_capacity": 1,
		"serviceable_zip_codes": []uint{12001},
	}, http.StatusCreated)
	f.expect(t, http.MethodPost, "/api/v1/seller/signup", "", gin.H{
		"name":     "Acme Store",
		"email":    "seller@fastship.test",
		"password": "supersecret",
	}, http.StatusCreated)
	sellerToken := f.login(t, "seller", "seller@fastship.test")
	partnerToken := f.login(t, "partner", "rider@fastship.test")

	env := f.expect(t, http.MethodGet, "/api/v1/locations/12001/partners", "", nil, http.StatusOK)
	if !strings.Contains(string(env.Data), "Rapid Riders") {
		t.Fatalf("partner lookup should list the partner, got %s", string(env.Data))
	}
	f.expect(t, http.MethodPut, "/api/v1/locations/13001", "", nil, http.StatusOK)
	f.expect(t, http.MethodPut, "/api/v1/locations/abc", "", nil, http.StatusBadRequest)

	env = f.expect(t, http.MethodPost, "/api/v1/seller/shipments", sellerToken, gin.H{
		"content":              "vase",
		"weight":               3,
		"destination":          12001,
		"client_contact_email": "client@fastship.test",
		"client_contact_phone": "612345678",
	}, http.StatusCreated)
	var shipment models.Shipment
	if err := json.Unmarshal(env.Data, &shipment); err != nil {
		t.Fatalf("decode shipment failed: %v", err)
	}

	env = f.expect(t, http.MethodGet, "/api/v1/partner/me", partnerToken, nil, http.StatusOK)
	if !strings.Contains(string(env.Data), `"current_handling_capacity":0`) {
		t.Fatalf("partner should be at full capacity, got %s", string(env.Data))
	}
	f.expect(t, http.MethodPatch, "/api/v1/partner/me", partnerToken, gin.H{"max_handling_capacity": 3}, http.StatusOK)

	tagsPath := "/api/v1/seller/shipments/" + shipment.ID + "/tags"
	f.expect(t, http.MethodPost, tagsPath, sellerToken, gin.H{"name": "fragile"}, http.StatusOK)
	f.expect(t, http.MethodPost, tagsPath, sellerToken, gin.H{"name": "fragile"}, http.StatusConflict)
	f.expect(t, http.MethodPost, tagsPath, sellerToken, gin.H{"name": "unknown"}, http.StatusBadRequest)
	f.expect(t, http.MethodDelete, "/api/v1/partner/shipments/"+shipment.ID+"/tags/fragile", partnerToken, nil, http.StatusOK)
	f.expect(t, http.MethodDelete, tagsPath+"/fragile", sellerToken, nil, http.StatusNotFound)

	env = f.expect(t, http.MethodGet, "/api/v1/partner/shipments?page=1&page_size=10", partnerToken, nil, http.StatusOK)
	if !strings.Contains(string(env.Data), shipment.ID) {
		t.Fatalf("partner listing should contain the shipment, got %s", string(env.Data))
	}
}

func TestHealthAndNoRoute(t *testing.T) {
	f := setupRouterTest(t)
	env := f.expect(t, http.MethodGet, "/health", "", nil, http.StatusOK)
	if !strings.Contains(string(env.Data), `"redis":"connected"`) {
		t.Fatalf("health should report redis connected, got %s", string(env.Data))
	}
	f.expect(t, http.MethodGet, "/api/v1/nothing-here", "", nil, http.StatusNotFound)
}
