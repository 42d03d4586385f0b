package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
	"salesledger/internal/domain/auth"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/domain/documents/sale"
	v1 "salesledger/internal/infrastructure/http/v1"
	"salesledger/internal/infrastructure/storage/memory"
	pkgnumerator "salesledger/pkg/numerator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	router http.Handler

	customer, vendor, zone id.ID
	p1, p2                 id.ID
}

func newAPI(t *testing.T, mutate ...func(*v1.RouterConfig)) *api {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	products := memory.NewProductRepo(store)
	clients := memory.NewClientRepo(store)
	vendors := memory.NewVendorRepo(store)
	zones := memory.NewZoneRepo(store)

	productSvc := product.NewService(products, store, nil)
	parties := party.NewServices(clients, vendors, zones, store)
	saleSvc := sale.NewService(sale.Deps{
		Repo:      memory.NewSaleRepo(store),
		Products:  products,
		Parties:   party.NewDirectory(clients, vendors, zones),
		TxManager: store,
		Numerator: pkgnumerator.New(nil),
		Events:    memory.NewOutbox(store),
		Audit:     memory.NewAuditLog(store),
		Cache:     productSvc,
		Catalog:   productSvc,
	}, sale.DefaultConfig())

	a := &api{}
	c := party.NewClient("Ana")
	v := party.NewVendor("Luis")
	z := party.NewZone("Norte")
	require.NoError(t, clients.Create(ctx, c))
	require.NoError(t, vendors.Create(ctx, v))
	require.NoError(t, zones.Create(ctx, z))
	a.customer, a.vendor, a.zone = c.ID, v.ID, z.ID

	p1 := product.NewProduct("P1", decimal.NewFromInt(10), 100)
	p2 := product.NewProduct("P2", decimal.NewFromInt(20), 50)
	require.NoError(t, products.Create(ctx, p1))
	require.NoError(t, products.Create(ctx, p2))
	a.p1, a.p2 = p1.ID, p2.ID

	cfg := v1.RouterConfig{Sales: saleSvc, Products: productSvc, Parties: parties}
	for _, fn := range mutate {
		fn(&cfg)
	}
	a.router = v1.NewRouter(cfg)
	return a
}

func (a *api) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) saleBody(lines ...map[string]any) map[string]any {
	return map[string]any{
		"customerId": a.customer.String(),
		"vendorId":   a.vendor.String(),
		"zoneId":     a.zone.String(),
		"lines":      lines,
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/live", nil).Code)

	ready := a.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), "memory")
}

func TestRegisterSale_Created(t *testing.T) {
	a := newAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/sales", a.saleBody(
		map[string]any{"productId": a.p1.String(), "quantity": 2, "unitPrice": "10.00", "taxPercent": "0"},
		map[string]any{"productId": a.p2.String(), "quantity": 1, "unitPrice": "20.00", "taxPercent": "10"},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	s := decode[sale.Sale](t, w)
	assert.Equal(t, sale.StatusConfirmed, s.Status)
	assert.True(t, s.TotalAmount.Equal(decimal.RequireFromString("42")), s.TotalAmount.String())
	assert.NotEmpty(t, s.DocumentNumber())
	require.Len(t, s.Lines, 2)

	got := decode[product.Product](t, a.do(t, http.MethodGet, "/api/v1/products/"+a.p1.String(), nil))
	assert.Equal(t, int64(98), got.Stock)
}

func TestRegisterSale_BusinessErrors(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		line   map[string]any
		status int
		code   string
	}{
		{"insufficient stock", map[string]any{"productId": a.p2.String(), "quantity": 51, "unitPrice": "20"}, http.StatusUnprocessableEntity, apperror.CodeInsufficientStock},
		{"price changed", map[string]any{"productId": a.p1.String(), "quantity": 1, "unitPrice": "9.50"}, http.StatusUnprocessableEntity, apperror.CodePriceChanged},
		{"unknown product", map[string]any{"productId": id.New().String(), "quantity": 1, "unitPrice": "1"}, http.StatusNotFound, apperror.CodeNotFound},
		{"bad product id", map[string]any{"productId": "nope", "quantity": 1, "unitPrice": "1"}, http.StatusBadRequest, apperror.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/v1/sales", a.saleBody(tt.line))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[errorBody](t, w).Code)
		})
	}
}

func TestRegisterSale_EmptyLines(t *testing.T) {
	a := newAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/sales", a.saleBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeEmptyLineSet, decode[errorBody](t, w).Code)
}

func TestSaleLifecycle(t *testing.T) {
	a := newAPI(t)

	created := decode[sale.Sale](t, a.do(t, http.MethodPost, "/api/v1/sales", a.saleBody(
		map[string]any{"productId": a.p1.String(), "quantity": 3, "unitPrice": "10"},
	)))
	path := "/api/v1/sales/" + created.ID.String()

	patched := a.do(t, http.MethodPatch, path, map[string]any{
		"notes":   "delivered",
		"version": created.Version,
	})
	require.Equal(t, http.StatusOK, patched.Code, patched.Body.String())
	assert.Equal(t, "delivered", *decode[sale.Sale](t, patched).Notes)

	stale := a.do(t, http.MethodPatch, path, map[string]any{"notes": "x", "version": created.Version})
	assert.Equal(t, http.StatusConflict, stale.Code)

	cancelled := a.do(t, http.MethodPost, path+"/cancel", nil)
	require.Equal(t, http.StatusOK, cancelled.Code)
	assert.Equal(t, sale.StatusCancelled, decode[sale.Sale](t, cancelled).Status)

	list := decode[struct {
		TotalCount int64 `json:"totalCount"`
	}](t, a.do(t, http.MethodGet, "/api/v1/sales?status=CANCELLED", nil))
	assert.Equal(t, int64(1), list.TotalCount)

	lower := decode[struct {
		TotalCount int64 `json:"totalCount"`
	}](t, a.do(t, http.MethodGet, "/api/v1/sales?status=cancelled", nil))
	assert.Equal(t, int64(1), lower.TotalCount)

	bogus := a.do(t, http.MethodGet, "/api/v1/sales?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, bogus.Code)
	assert.Equal(t, apperror.CodeValidation, decode[errorBody](t, bogus).Code)

	history := a.do(t, http.MethodGet, path+"/history", nil)
	require.Equal(t, http.StatusOK, history.Code)
	assert.Contains(t, history.Body.String(), "items")

	receipt := a.do(t, http.MethodGet, path+"/receipt", nil)
	require.Equal(t, http.StatusOK, receipt.Code)
	assert.Equal(t, "application/pdf", receipt.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(receipt.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, nil).Code)
}

func TestProducts(t *testing.T) {
	a := newAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Cable", "sku": "CB-1", "price": "3.5", "stock": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[product.Product](t, w)
	path := "/api/v1/products/" + p.ID.String()

	dup := a.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "Other", "sku": "cb-1", "price": "1"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	upd := a.do(t, http.MethodPut, path, map[string]any{"price": "4.25"})
	require.Equal(t, http.StatusOK, upd.Code, upd.Body.String())
	assert.True(t, decode[product.Product](t, upd).Price.Equal(decimal.RequireFromString("4.25")))

	toggled := a.do(t, http.MethodPost, path+"/toggle", nil)
	require.Equal(t, http.StatusOK, toggled.Code)
	assert.False(t, decode[product.Product](t, toggled).Active)

	list := decode[struct {
		TotalCount int64 `json:"totalCount"`
	}](t, a.do(t, http.MethodGet, "/api/v1/products?active=true", nil))
	assert.Equal(t, int64(2), list.TotalCount)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, nil).Code)
}

func TestParties(t *testing.T) {
	a := newAPI(t)

	for _, kind := range []string{"clients", "vendors", "zones"} {
		t.Run(kind, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/v1/"+kind, map[string]any{"name": "Sur " + kind})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			created := decode[struct {
				ID string `json:"id"`
			}](t, w)
			assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/%s/%s", kind, created.ID), nil).Code)
		})
	}

	dup := a.do(t, http.MethodPost, "/api/v1/zones", map[string]any{"name": "norte"})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, apperror.CodeDuplicate, decode[errorBody](t, dup).Code)

	bad := a.do(t, http.MethodPost, "/api/v1/clients", map[string]any{"name": "X", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	missing := a.do(t, http.MethodPost, "/api/v1/vendors", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestAuthEnabled(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	a := newAPI(t, func(cfg *v1.RouterConfig) { cfg.JWTValidator = jwtSvc })

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/v1/sales", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/live", nil).Code)

	token, _, err := jwtSvc.GenerateAccessToken("cashier-1", "", nil, false)
	require.NoError(t, err)

	w := a.do(t, http.MethodPost, "/api/v1/sales", a.saleBody(
		map[string]any{"productId": a.p1.String(), "quantity": 1, "unitPrice": "10"},
	), "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "cashier-1", decode[sale.Sale](t, w).CreatedBy)
}
