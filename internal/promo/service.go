package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	GetPromoByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	CountUserRedemptions(ctx context.Context, promoID int64, userID string) (int, error)
	HasPriorOrder(ctx context.Context, userID string) (bool, error)
}

// Request is one validation of a code against a cart snapshot.
type Request struct {
	Code      string
	UserID    string
	Subtotal  decimal.Decimal
	Lines     []domain.CartLine
	CountryID *int64
}

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Validate evaluates the code without consuming it. The returned promo is
// nil when the code does not exist.
func (s *Service) Validate(ctx context.Context, req Request) (Result, *domain.PromoCode, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return Result{}, nil, domain.NewValidationError("code", "is required")
	}

	p, err := s.repo.GetPromoByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return reject(domain.PromoNotFound, msgNotFound, req.Subtotal), nil, nil
	}
	if err != nil {
		return Result{}, nil, fmt.Errorf("get promo code: %w", err)
	}

	shopper := Shopper{UserID: req.UserID}
	if req.UserID != "" {
		if shopper.HasPriorOrder, err = s.repo.HasPriorOrder(ctx, req.UserID); err != nil {
			return Result{}, nil, err
		}
		if shopper.Redemptions, err = s.repo.CountUserRedemptions(ctx, p.ID, req.UserID); err != nil {
			return Result{}, nil, err
		}
	}

	res := Evaluate(p, EvalInput{
		Now:       s.now(),
		Subtotal:  req.Subtotal,
		Lines:     req.Lines,
		CountryID: req.CountryID,
		Shopper:   shopper,
	})
	if !res.Valid {
		logger.FromContext(ctx, s.log).Debug("promo code rejected",
			zap.String("code", p.Code),
			zap.String("reason", res.Reason))
	}
	return res, p, nil
}

// Apply validates the code and, when valid, stores it on the cart.
func (s *Service) Apply(ctx context.Context, c *domain.Cart, req Request) (Result, error) {
	res, p, err := s.Validate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if res.Valid {
		c.PromoCode = p.Code
	}
	return res, nil
}

func (s *Service) Remove(c *domain.Cart) {
	c.PromoCode = ""
}
