package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"stock_pro/api"
	"stock_pro/internal/attachment"
	"stock_pro/internal/auth"
	"stock_pro/internal/export"
	"stock_pro/internal/inventory"
	"stock_pro/internal/kv"
	"stock_pro/internal/metrics"
)

var testNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

const (
	adminEmail    = "admin@starlink.com"
	adminPassword = "admin123"
)

func initRoutesTests(t *testing.T, providerEnabled bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zaptest.NewLogger(t)
	backend := kv.NewLocalStorage()

	store := inventory.NewStore(backend, logger, inventory.WithClock(func() time.Time { return testNow }))
	require.NoError(t, store.Load(context.Background()))

	authenticator := auth.NewLocalAuthenticator(backend, logger, auth.LocalOptions{
		ProviderEnabled: providerEnabled,
		ProviderAccount: "owner@gmail.com",
		Cost:            bcrypt.MinCost,
	})
	require.NoError(t, authenticator.Seed(context.Background(), auth.Credentials{Email: adminEmail, Password: adminPassword}))

	api.InitRoutes(router, api.Dependencies{
		Store:              store,
		Auth:               authenticator,
		Tokens:             auth.NewTokenIssuer("test-secret", time.Hour),
		Attachments:        attachment.NewDataURLStore(1024),
		AttachmentMaxBytes: 1024,
		Metrics:            metrics.New(),
		Logger:             logger,
		Location:           time.UTC,
		Now:                func() time.Time { return testNow },
	})
	return router
}

func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
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
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/auth/login", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

// TestInventoryHappyPath_FullFlow walks product creation, a sale, a receipt,
// the dashboard, the exports and a confirmed deletion.
func TestInventoryHappyPath_FullFlow(t *testing.T) {
	router := initRoutesTests(t, false)
	token := login(t, router)

	var productID string

	t.Run("POST_CreateProduct", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/products", token, map[string]any{
			"name":           "Kit Starlink V4",
			"category":       "Antena",
			"sku":            "KIT-V4",
			"purchase_price": "50",
			"sell_price":     "150",
			"stock":          10,
			"supplier":       "SpaceX",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created inventory.Product
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID, "Expected product ID to be generated")
		assert.Equal(t, 10, created.Stock, "Expected opening stock to be kept")
		productID = created.ID
	})

	if productID == "" {
		t.Fatal("Product ID was not generated in POST_CreateProduct step.")
	}

	t.Run("POST_CreateSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", token, map[string]any{
			"product_id":     productID,
			"quantity":       2,
			"sold_price":     "100",
			"shipping_cost":  "25",
			"payment_method": "Pix",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var sale inventory.Sale
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
		assert.Equal(t, "200", sale.Total.String(), "Expected total to be sold price times quantity")
		assert.Equal(t, "75", sale.Profit.String(), "Expected profit net of cost and shipping")
		assert.Equal(t, "Kit Starlink V4", sale.ProductName)
	})

	t.Run("POST_CreateSale_InsufficientStock", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", token, map[string]any{
			"product_id":     productID,
			"quantity":       20,
			"sold_price":     "100",
			"payment_method": "Pix",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var body struct {
			Available int `json:"available"`
			Requested int `json:"requested"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 8, body.Available, "Expected remaining stock to be reported")
		assert.Equal(t, 20, body.Requested)
	})

	t.Run("POST_CreateStockLog", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/stock-logs", token, map[string]any{
			"product_id": productID,
			"quantity":   5,
			"unit_value": "50",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var log inventory.StockLog
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &log))
		assert.Equal(t, inventory.ReceiptReceiving, log.Kind, "Expected manual receipts to default to receiving")
	})

	t.Run("GET_Product", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/products/"+productID, token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var p inventory.Product
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, 13, p.Stock, "Expected 10 - 2 sold + 5 received")
	})

	t.Run("GET_Dashboard", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/dashboard", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var sum inventory.Summary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
		assert.Equal(t, "650", sum.InventoryValue.String())
		assert.Equal(t, "750", sum.HistoricalInvestment.String())
		assert.Equal(t, "200", sum.TotalSold.String())
		assert.Equal(t, "75", sum.TotalProfit.String())
		assert.Equal(t, "25", sum.TotalShipping.String())
		assert.Equal(t, 1, sum.SaleCount)
		require.Len(t, sum.TopSellers, 1)
		assert.Equal(t, 2, sum.TopSellers[0].Quantity)
	})

	t.Run("GET_SearchProducts", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/products?q=kit-v4&category=Antena", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)

		w = doJSON(router, http.MethodGet, "/products?category=Cabo", token, nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Count)
	})

	t.Run("GET_ExportSales", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/export/sales", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, `attachment; filename="vendas_starlink_14-03-2025.csv"`, w.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(w.Body.String(), export.BOM+"Data;Produto;"), "Expected BOM and header row")
		assert.Contains(t, w.Body.String(), `"14/03/2025";"Kit Starlink V4";"2";"100.00";"25.00";"200.00";"75.00";"Pix";"N/A"`)
	})

	t.Run("GET_ExportProducts", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/export/products", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="estoque_starlink_14-03-2025.csv"`, w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Body.String(), `"KIT-V4"`)
	})

	t.Run("DELETE_Product_RequiresConfirmation", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/products/"+productID, token, nil)
		assert.Equal(t, http.StatusPreconditionRequired, w.Code)

		w = doJSON(router, http.MethodDelete, "/products/"+productID+"?confirm=true", token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(router, http.MethodGet, "/products/"+productID, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET_Sales_RetainedAfterDelete", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales?q=starlink", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Results []inventory.Sale `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Results, 1, "Expected sales history to survive product deletion")
	})
}

func TestProductErrors(t *testing.T) {
	router := initRoutesTests(t, false)
	token := login(t, router)

	draft := map[string]any{"name": "Cabo 15m", "category": "Cabo", "sku": "CAB-15", "purchase_price": "10", "sell_price": "30"}
	w := doJSON(router, http.MethodPost, "/products", token, draft)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(router, http.MethodPost, "/products", token, draft)
	assert.Equal(t, http.StatusConflict, w.Code, "Expected duplicate SKU to conflict")

	w = doJSON(router, http.MethodPost, "/products", token, map[string]any{"name": "X", "category": "Nave", "sku": "X-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected unknown category to be rejected")

	w = doJSON(router, http.MethodPost, "/products", token, map[string]any{"name": "X", "category": "Cabo", "sku": "X-2", "sell_price": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected malformed decimal to be rejected")

	w = doJSON(router, http.MethodPut, "/products/missing", token, map[string]any{"name": "X", "category": "Cabo", "sku": "X-3"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/sales", token, map[string]any{"product_id": "missing", "quantity": 1, "payment_method": "Pix"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/dashboard?threshold=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/dashboard?threshold=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected a zero threshold to be rejected")

	w = doJSON(router, http.MethodGet, "/dashboard?threshold=20", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum inventory.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Len(t, sum.LowStock, 1, "Expected a stock of 0 to be under the threshold")
}

func TestAuthEndpoints(t *testing.T) {
	router := initRoutesTests(t, true)

	t.Run("ProtectedRoutesRequireToken", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/products", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = doJSON(router, http.MethodGet, "/products", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("LoginFailures", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@starlink.com", "password": "whatever"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"not-found"}`, w.Body.String())

		w = doJSON(router, http.MethodPost, "/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong-pass"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"wrong-credential"}`, w.Body.String())
	})

	t.Run("Register", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/auth/register", "", map[string]string{"email": "seller@starlink.com", "password": "secret1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = doJSON(router, http.MethodPost, "/auth/register", "", map[string]string{"email": "seller@starlink.com", "password": "secret1"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":"already-registered"}`, w.Body.String())

		w = doJSON(router, http.MethodPost, "/auth/register", "", map[string]string{"email": "long@starlink.com", "password": strings.Repeat("p", 80)})
		assert.Equal(t, http.StatusBadRequest, w.Code, "Expected an over-long password to be a client error")
	})

	t.Run("ProviderSignIn", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/auth/provider", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var session struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

		w = doJSON(router, http.MethodGet, "/auth/me", session.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"email":"owner@gmail.com","provider":"provider"}`, w.Body.String())
	})
}

func TestProviderDisabled(t *testing.T) {
	router := initRoutesTests(t, false)

	w := doJSON(router, http.MethodPost, "/auth/provider", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func uploadFile(t *testing.T, router *gin.Engine, token, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAttachmentUpload(t *testing.T) {
	router := initRoutesTests(t, false)
	token := login(t, router)
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

	w := uploadFile(t, router, token, "pixel.gif", gif)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Ref string `json:"ref"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Ref, "data:image/gif;base64,"), body.Ref)

	w = uploadFile(t, router, token, "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = uploadFile(t, router, token, "huge.gif", append(gif, bytes.Repeat([]byte{0}, 2048)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, "Expected file over the limit to be rejected")

	w = uploadFile(t, router, token, "oversized.gif", append(gif, bytes.Repeat([]byte{0}, 256<<10)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, "Expected request body over the limit to be cut off")
}

func TestPingAndMetrics(t *testing.T) {
	router := initRoutesTests(t, false)

	w := doJSON(router, http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = doJSON(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`stockpro_http_requests_total{method="GET",path="/ping",status="%d"} 1`, http.StatusOK))
}
