package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/domain/settlement"
)

// CheckoutItem is one line of a wallet-funded checkout.
type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type Service struct {
	repo        *Repository
	settlements *settlement.Service
}

func NewService(repo *Repository, settlements *settlement.Service) *Service {
	return &Service{repo: repo, settlements: settlements}
}

// CheckoutWithWallet prices the cart at current product prices and settles it
// from the buyer's wallet. The order rows are written inside the settlement
// transaction, so the order exists exactly when the debit does.
func (s *Service) CheckoutWithWallet(ctx context.Context, userID uuid.UUID, items []CheckoutItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.repo.GetActiveProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	priceByID := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, p := range products {
		priceByID[p.ID] = p.Price
	}

	o := &Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: StatusPaid,
		Total:  decimal.Zero,
		Items:  make([]Item, 0, len(items)),
	}
	for _, item := range items {
		price, ok := priceByID[item.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		o.Items = append(o.Items, Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
		o.Total = o.Total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	_, err = s.settlements.SettleOrderWithWallet(ctx, userID, o.Total, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.repo.CreateTx(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", userID.String()).
		Str("total", o.Total.String()).
		Int("items", len(o.Items)).
		Msg("wallet checkout completed")

	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}
