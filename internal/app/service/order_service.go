package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/pricing"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"github.com/vintagebeauty/storefront-backend/pkg/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("order status cannot change")
)

type OrderItemInput struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=100"`
	Size      string `json:"size"`
}

type CreateOrderInput struct {
	UserID          *uint            `json:"-"`
	CustomerName    string           `json:"customer_name" validate:"required,max=100"`
	Email           string           `json:"email" validate:"required,email"`
	Phone           string           `json:"phone" validate:"max=30"`
	ShippingAddress string           `json:"shipping_address" validate:"required"`
	Items           []OrderItemInput `json:"items" validate:"min=1,dive"`
}

type OrderPage struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error)
	TrackOrder(ctx context.Context, number string) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID uint) ([]model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) (*OrderPage, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus, trackingNumber string) (*model.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cache       ProductCache
	db          *gorm.DB
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cache ProductCache,
	db *gorm.DB,
) OrderService {
	if cache == nil {
		cache = noopProductCache{}
	}
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cache:       cache,
		db:          db,
	}
}

// CreateOrder prices every line from the current catalog and takes the stock
// in one transaction. Any line failing rolls the whole order back.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.Int("order.item_count", len(input.Items))))
	defer span.End()

	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.Email = normalizeEmail(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	for i := range input.Items {
		input.Items[i].Size = strings.TrimSpace(input.Items[i].Size)
	}

	log := logger.FromContext(ctx)
	log.Info("Creating order", map[string]interface{}{
		"user_id":    input.UserID,
		"item_count": len(input.Items),
	})

	if err := validateStruct(input); err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderNumber:     util.GenerateOrderNumber(time.Now().UTC()),
		UserID:          input.UserID,
		CustomerName:    input.CustomerName,
		Email:           input.Email,
		Phone:           input.Phone,
		ShippingAddress: input.ShippingAddress,
		Status:          model.OrderStatusPending,
	}
	var touchedSlugs []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		total := decimal.Zero

		for i, line := range input.Items {
			product, err := products.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Warn("Product not found during order creation", map[string]interface{}{
						"product_id": line.ProductID,
					})
					return ErrProductNotFound
				}
				return err
			}

			if line.Size != "" {
				if _, ok := product.SizePrice(line.Size); !ok {
					return NewValidationError(indexedField("items", i, "size"), "is not offered for this product")
				}
			}

			unitPrice := pricing.UnitPrice(pricing.ComponentOf(product), line.Size)
			if err := products.AdjustStock(ctx, product.ID, -line.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					log.Warn("Order creation failed: insufficient product stock", map[string]interface{}{
						"product_id": product.ID,
						"requested":  line.Quantity,
						"available":  product.Stock,
					})
					return ErrInsufficientStock
				}
				return err
			}

			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)

			image := ""
			if len(product.Images) > 0 {
				image = product.Images[0]
			}
			order.Items = append(order.Items, model.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				ProductSlug: product.Slug,
				Image:       image,
				Size:        line.Size,
				Quantity:    line.Quantity,
				UnitPrice:   unitPrice,
				LineTotal:   lineTotal,
			})
			touchedSlugs = append(touchedSlugs, product.Slug)
		}

		order.TotalAmount = total
		return s.orderRepo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrProductNotFound) && !errors.Is(err, ErrInsufficientStock) {
			log.Error("Failed to create order", err, map[string]interface{}{
				"user_id": input.UserID,
			})
			span.RecordError(err)
			span.SetStatus(codes.Error, "order creation failed")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", order.OrderNumber))
	s.cache.Invalidate(ctx, touchedSlugs...)

	log.Info("Order created successfully", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount.String(),
	})
	return order, nil
}

// TrackOrder finds an order by its order number or courier tracking number.
func (s *orderService) TrackOrder(ctx context.Context, number string) (*model.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrOrderNotFound
	}

	order, err := s.orderRepo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order not found for tracking", map[string]interface{}{
				"number": number,
			})
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to track order", err, map[string]interface{}{
			"number": number,
		})
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	logger.Debug("Fetching user orders", map[string]interface{}{
		"user_id": userID,
	})

	orders, err := s.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) (*OrderPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, NewValidationError("status", "is not a known order status")
	}

	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		logger.Error("Failed to list orders", err)
		return nil, err
	}
	return &OrderPage{
		Orders: orders,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// UpdateOrderStatus moves an order to status. Cancelling returns the stock of
// every line; a cancelled order cannot be reopened.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus, trackingNumber string) (*model.Order, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "is not a known order status")
	}
	trackingNumber = strings.TrimSpace(trackingNumber)

	log := logger.FromContext(ctx)
	log.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	var touchedSlugs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)

		order, err := orders.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status == model.OrderStatusCancelled && status != model.OrderStatusCancelled {
			return ErrInvalidStatusTransition
		}

		if status == model.OrderStatusCancelled && order.Status != model.OrderStatusCancelled {
			products := s.productRepo.WithTx(tx)
			for _, item := range order.Items {
				if err := products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
					if errors.Is(err, repository.ErrStockConflict) {
						log.Warn("Product gone, stock not restored", map[string]interface{}{
							"order_id":   orderID,
							"product_id": item.ProductID,
						})
						continue
					}
					return err
				}
				touchedSlugs = append(touchedSlugs, item.ProductSlug)
			}
		}

		if err := orders.UpdateStatus(ctx, orderID, status, trackingNumber); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) && !errors.Is(err, ErrInvalidStatusTransition) {
			log.Error("Failed to update order status", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, touchedSlugs...)

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log.Info("Order status updated successfully", map[string]interface{}{
		"order_id": orderID,
		"status":   order.Status,
	})
	return order, nil
}
