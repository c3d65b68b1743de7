package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-suitcase-market.git/internal/kafka"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Service struct {
	Store     ledger.Store
	Inventory *inventory.Engine

	SoldOut     kafkax.Publisher // market.product.soldout
	ServiceName string
}

type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Material    market.Material `json:"material"`
	Height      float64         `json:"height"`
	Width       float64         `json:"width"`
	Depth       float64         `json:"depth"`
	RateCents   int64           `json:"rate_cents"`
	Stock       int             `json:"stock"`
	Features    []string        `json:"features"`
	Color       string          `json:"color"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required: %w", market.ErrValidation)
	}
	if !in.Material.Valid() {
		return fmt.Errorf("unknown material %q: %w", in.Material, market.ErrValidation)
	}
	if in.Height <= 0 || in.Width <= 0 {
		return fmt.Errorf("height and width must be positive: %w", market.ErrValidation)
	}
	if in.RateCents < 0 {
		return fmt.Errorf("rate must be non-negative: %w", market.ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("stock must be non-negative: %w", market.ErrValidation)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, caller authz.Caller, in CreateInput) (market.Product, error) {
	if err := authz.Check(caller, authz.OpCreateProduct, ""); err != nil {
		return market.Product{}, err
	}
	if err := in.validate(); err != nil {
		return market.Product{}, err
	}

	p := market.Product{
		ID:          uuid.NewString(),
		SellerID:    caller.ID,
		Name:        in.Name,
		Description: in.Description,
		Material:    in.Material,
		Height:      in.Height,
		Width:       in.Width,
		Depth:       in.Depth,
		RateCents:   in.RateCents,
		Stock:       in.Stock,
		IsSold:      in.Stock == 0,
		Features:    in.Features,
		Color:       in.Color,
	}
	return s.Store.PutProduct(ctx, p, 0)
}

// PatchInput uses pointers so absent fields stay untouched. Stock and IsSold
// are deliberately not patchable here; stock changes go through the
// reservation engine only.
type PatchInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Material    *market.Material `json:"material"`
	Height      *float64         `json:"height"`
	Width       *float64         `json:"width"`
	Depth       *float64         `json:"depth"`
	RateCents   *int64           `json:"rate_cents"`
	Features    *[]string        `json:"features"`
	Color       *string          `json:"color"`
}

func (s *Service) Patch(ctx context.Context, caller authz.Caller, id string, in PatchInput) (market.Product, error) {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return market.Product{}, err
	}
	if err := authz.Check(caller, authz.OpUpdateProduct, p.SellerID); err != nil {
		return market.Product{}, err
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Material != nil {
		if !in.Material.Valid() {
			return market.Product{}, fmt.Errorf("unknown material %q: %w", *in.Material, market.ErrValidation)
		}
		p.Material = *in.Material
	}
	if in.Height != nil {
		p.Height = *in.Height
	}
	if in.Width != nil {
		p.Width = *in.Width
	}
	if in.Depth != nil {
		p.Depth = *in.Depth
	}
	if in.RateCents != nil {
		if *in.RateCents < 0 {
			return market.Product{}, fmt.Errorf("rate must be non-negative: %w", market.ErrValidation)
		}
		p.RateCents = *in.RateCents
	}
	if in.Features != nil {
		p.Features = *in.Features
	}
	if in.Color != nil {
		p.Color = *in.Color
	}
	return s.Store.PutProduct(ctx, p, p.Version)
}

func (s *Service) Delete(ctx context.Context, caller authz.Caller, id string) error {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Check(caller, authz.OpDeleteProduct, p.SellerID); err != nil {
		return err
	}
	return s.Store.DeleteProduct(ctx, id)
}

// MarkSold is the seller's destructive override: stock goes to zero no matter
// what reservations are outstanding.
func (s *Service) MarkSold(ctx context.Context, caller authz.Caller, id string) (market.Product, error) {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return market.Product{}, err
	}
	if err := authz.Check(caller, authz.OpMarkSold, p.SellerID); err != nil {
		return market.Product{}, err
	}

	updated, err := s.Inventory.MarkSold(ctx, id)
	if err != nil {
		return market.Product{}, err
	}
	s.publishSoldOut(updated)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (market.Product, error) {
	return s.Store.GetProduct(ctx, id)
}

func (s *Service) List(ctx context.Context, f ledger.ProductFilter) ([]market.Product, error) {
	return s.Store.ListProducts(ctx, f)
}

// ListOwn is the owner-scoped listing behind GET /seller/products.
func (s *Service) ListOwn(ctx context.Context, caller authz.Caller) ([]market.Product, error) {
	return s.Store.ListProducts(ctx, ledger.ProductFilter{SellerID: caller.ID})
}

func (s *Service) publishSoldOut(p market.Product) {
	if s.SoldOut == nil {
		return
	}
	ev := market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     market.EventProductSoldOut,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: p.ID,
		Payload: kafkax.MustMarshal(market.ProductSoldOutPayload{
			ProductID: p.ID, SellerID: p.SellerID, Forced: true,
		}),
	}
	s.SoldOut.Publish(market.PartitionKey(p.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(market.EventProductSoldOut)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
