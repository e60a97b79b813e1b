package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
	"gorm.io/gorm"
)

type orderControllerFixture struct {
	router     *gin.Engine
	db         *gorm.DB
	user       *model.User
	perfume    *model.Product
	userToken  string
	adminToken string
}

func setupOrderControllerTest(t *testing.T) *orderControllerFixture {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB(t)

	user := &model.User{Email: "buyer@example.com", PasswordHash: "hash", Name: "Buyer", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)
	admin := &model.User{Email: "admin@example.com", PasswordHash: "hash", Name: "Admin", Role: model.RoleAdmin}
	require.NoError(t, testDB.Create(admin).Error)

	category := seedCategory(t, testDB, "Perfumes")
	perfume := &model.Product{
		Name:         "Rose Oud",
		Slug:         "rose-oud-perfumes",
		Description:  "Rose and oud",
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Price:        decimal.NewFromInt(1200),
		Sizes:        []model.ProductSize{{Size: "100ml", Price: decimal.NewFromInt(2000)}},
		Stock:        3,
		InStock:      true,
		Images:       []string{"https://cdn.example.com/rose-oud.jpg"},
	}
	require.NoError(t, testDB.Create(perfume).Error)

	orderService := service.NewOrderService(
		repository.NewOrderRepository(testDB),
		repository.NewProductRepository(testDB),
		nil,
		testDB,
	)
	ctrl := NewOrderController(orderService)
	auth := middleware.NewAuthMiddleware(testJWTSecret)

	router := gin.New()
	orders := router.Group("/orders")
	orders.POST("", auth.OptionalAuthenticate(), ctrl.CreateOrder)
	orders.GET("/track/:number", ctrl.TrackOrder)
	orders.GET("", auth.Authenticate(), ctrl.GetMyOrders)
	orders.GET("/all", auth.Authenticate(), auth.RequireRole(model.RoleAdmin), ctrl.ListAllOrders)
	orders.PUT("/:id/status", auth.Authenticate(), auth.RequireRole(model.RoleAdmin), ctrl.UpdateOrderStatus)

	return &orderControllerFixture{
		router:     router,
		db:         testDB,
		user:       user,
		perfume:    perfume,
		userToken:  tokenFor(t, user.ID, model.RoleUser),
		adminToken: tokenFor(t, admin.ID, model.RoleAdmin),
	}
}

func (f *orderControllerFixture) orderBody(quantity int, size string) gin.H {
	return gin.H{
		"customer_name":    "Asha",
		"email":            "asha@example.com",
		"phone":            "+91 98765 43210",
		"shipping_address": "12 MG Road, Pune",
		"items": []gin.H{
			{"product_id": f.perfume.ID, "quantity": quantity, "size": size},
		},
	}
}

func (f *orderControllerFixture) stock(t *testing.T) int {
	t.Helper()
	var product model.Product
	require.NoError(t, f.db.First(&product, f.perfume.ID).Error)
	return product.Stock
}

func TestOrderController_CreateOrder(t *testing.T) {
	f := setupOrderControllerTest(t)

	w := performJSON(f.router, http.MethodPost, "/orders", f.orderBody(1, "100ml"), f.userToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	order := decodeBody(t, w)["order"].(map[string]interface{})
	assert.Equal(t, 2000.0, order["total_amount"])
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, float64(f.user.ID), order["user_id"])
	assert.Equal(t, 2, f.stock(t))

	w = performJSON(f.router, http.MethodPost, "/orders", f.orderBody(1, ""), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	guest := decodeBody(t, w)["order"].(map[string]interface{})
	assert.NotContains(t, guest, "user_id")
	assert.Equal(t, 1200.0, guest["total_amount"])
}

func TestOrderController_CreateOrderErrors(t *testing.T) {
	f := setupOrderControllerTest(t)

	missing := f.orderBody(1, "")
	missing["items"] = []gin.H{{"product_id": 999, "quantity": 1}}

	noItems := f.orderBody(1, "")
	noItems["items"] = []gin.H{}

	tests := []struct {
		name           string
		body           gin.H
		expectedStatus int
		expectedCode   string
	}{
		{name: "Insufficient stock", body: f.orderBody(5, ""), expectedStatus: http.StatusConflict, expectedCode: apperrors.OrderInsufficientStock},
		{name: "Unknown size", body: f.orderBody(1, "10ml"), expectedStatus: http.StatusBadRequest, expectedCode: apperrors.ValidationInvalidInput},
		{name: "Unknown product", body: missing, expectedStatus: http.StatusNotFound, expectedCode: apperrors.ProductNotFound},
		{name: "No items", body: noItems, expectedStatus: http.StatusBadRequest, expectedCode: apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(f.router, http.MethodPost, "/orders", tt.body, "")
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, decodeBody(t, w)["error"])
		})
	}

	assert.Equal(t, 3, f.stock(t))
}

func TestOrderController_TrackAndList(t *testing.T) {
	f := setupOrderControllerTest(t)

	w := performJSON(f.router, http.MethodPost, "/orders", f.orderBody(1, ""), f.userToken)
	require.Equal(t, http.StatusCreated, w.Code)
	order := decodeBody(t, w)["order"].(map[string]interface{})
	number := order["order_number"].(string)

	w = performJSON(f.router, http.MethodGet, "/orders/track/"+number, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(f.router, http.MethodGet, "/orders/track/VB-00000000-DEADBEEF", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.OrderNotFound, decodeBody(t, w)["error"])

	w = performJSON(f.router, http.MethodGet, "/orders", nil, f.userToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["count"])

	w = performJSON(f.router, http.MethodGet, "/orders/all", nil, f.userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(f.router, http.MethodGet, "/orders/all?status=pending", nil, f.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["total"])

	w = performJSON(f.router, http.MethodGet, "/orders/all?status=lost", nil, f.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderController_UpdateStatus(t *testing.T) {
	f := setupOrderControllerTest(t)

	w := performJSON(f.router, http.MethodPost, "/orders", f.orderBody(2, ""), "")
	require.Equal(t, http.StatusCreated, w.Code)
	order := decodeBody(t, w)["order"].(map[string]interface{})
	path := fmt.Sprintf("/orders/%d/status", int(order["id"].(float64)))
	assert.Equal(t, 1, f.stock(t))

	w = performJSON(f.router, http.MethodPut, path, UpdateOrderStatusRequest{Status: model.OrderStatusShipped, TrackingNumber: "DTDC123"}, f.adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "DTDC123", decodeBody(t, w)["order"].(map[string]interface{})["tracking_number"])

	w = performJSON(f.router, http.MethodGet, "/orders/track/DTDC123", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(f.router, http.MethodPut, path, UpdateOrderStatusRequest{Status: model.OrderStatusCancelled}, f.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, f.stock(t))

	w = performJSON(f.router, http.MethodPut, path, UpdateOrderStatusRequest{Status: model.OrderStatusPending}, f.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.OrderInvalidStatus, decodeBody(t, w)["error"])

	w = performJSON(f.router, http.MethodPut, path, gin.H{"status": "lost"}, f.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(f.router, http.MethodPut, "/orders/999/status", UpdateOrderStatusRequest{Status: model.OrderStatusShipped}, f.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
