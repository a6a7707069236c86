package carts

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/internal/realtime"
)

// ErrProductNotFound is returned when adding a product that does not exist.
var ErrProductNotFound = errors.New("Product not found")

// Store is the cart persistence the service needs.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Mutate(ctx context.Context, userID uuid.UUID, create bool, fn func(*models.Cart) error) (*models.Cart, error)
	Delete(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ProductReader loads products by id. Missing ids are absent from the map.
type ProductReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

// Notifier pushes an event to a user's live connections.
type Notifier interface {
	PublishToUser(userID uuid.UUID, event string, payload interface{})
}

// Service implements cart operations and prices carts for display.
type Service struct {
	store    Store
	products ProductReader
	notify   Notifier
	logger   *zap.Logger
}

// NewService creates a cart service. notify may be nil.
func NewService(store Store, products ProductReader, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, products: products, notify: notify, logger: logger}
}

// View joins the cart's items with their products and computes the total
// from current selling prices. Items whose product is gone are kept at price 0.
func (s *Service) View(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products := map[uuid.UUID]*models.Product{}
	if len(ids) > 0 {
		var err error
		if products, err = s.products.GetByIDs(ctx, ids); err != nil {
			return nil, errors.Wrap(err, "load cart products")
		}
	}

	view := &models.CartView{
		ID:              cart.ID,
		UserID:          cart.UserID,
		Items:           make([]models.CartLine, 0, len(cart.Items)),
		DiscountApplied: cart.DiscountApplied,
		TotalCartPrice:  decimal.Zero,
		CreatedAt:       cart.CreatedAt,
		UpdatedAt:       cart.UpdatedAt,
	}
	for _, it := range cart.Items {
		line := models.CartLine{ProductID: it.ProductID, Quantity: it.Quantity, LineTotal: decimal.Zero}
		if p, ok := products[it.ProductID]; ok {
			summary := p.Summary()
			line.Product = &summary
			line.LineTotal = p.SellingPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}
		view.TotalCartPrice = view.TotalCartPrice.Add(line.LineTotal)
		view.Items = append(view.Items, line)
	}
	return view, nil
}

// Get returns the priced view of the user's cart, or nil when there is none.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil || cart == nil {
		return nil, err
	}
	return s.View(ctx, cart)
}

// Add puts quantity of productID into the user's cart, creating the cart if needed.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartView, error) {
	found, err := s.products.GetByIDs(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, errors.Wrap(err, "load product")
	}
	if _, ok := found[productID]; !ok {
		return nil, ErrProductNotFound
	}
	cart, err := s.store.Mutate(ctx, userID, true, func(c *models.Cart) error {
		c.AddItem(productID, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.changed(ctx, cart)
}

// Remove drops productID from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) (*models.CartView, error) {
	cart, err := s.store.Mutate(ctx, userID, false, func(c *models.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.changed(ctx, cart)
}

// Clear deletes the user's cart. Codes applied to it stay consumed.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	existed, err := s.store.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if existed {
		s.publish(userID, map[string]interface{}{"items": []models.CartLine{}})
	}
	return nil
}

func (s *Service) changed(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	view, err := s.View(ctx, cart)
	if err != nil {
		return nil, err
	}
	s.publish(cart.UserID, view)
	return view, nil
}

func (s *Service) publish(userID uuid.UUID, payload interface{}) {
	if s.notify != nil {
		s.notify.PublishToUser(userID, realtime.EventCartUpdated, payload)
	}
}
