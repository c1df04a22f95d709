// Package dashboard computes the admin summary cards.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/pkg/formatters"
)

type SalesData struct {
	Amount        float64 `json:"amount"` // major currency units
	NumberOfSales int64   `json:"number_of_sales"`
}

type UserData struct {
	UserCount           int64   `json:"user_count"`
	AverageValuePerUser float64 `json:"average_value_per_user"`
}

type ProductData struct {
	ActiveCount   int64 `json:"active_count"`
	InactiveCount int64 `json:"inactive_count"`
}

type Summary struct {
	Sales    SalesData   `json:"sales"`
	Users    UserData    `json:"users"`
	Products ProductData `json:"products"`
}

// Card is one rendered dashboard tile
type Card struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Body     string `json:"body"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Load fetches the three summaries concurrently; the first failure cancels the rest.
func (s *Service) Load(ctx context.Context) (*Summary, error) {
	var sum Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum.Sales, err = s.SalesData(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Users, err = s.UserData(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Products, err = s.ProductData(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &sum, nil
}

type orderAggregate struct {
	Total int64
	Count int64
}

func (s *Service) orderAggregate(ctx context.Context) (orderAggregate, error) {
	var agg orderAggregate
	err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Select("COALESCE(SUM(price_paid_in_cents), 0) AS total, COUNT(*) AS count").
		Scan(&agg).Error
	return agg, err
}

func (s *Service) SalesData(ctx context.Context) (SalesData, error) {
	agg, err := s.orderAggregate(ctx)
	if err != nil {
		return SalesData{}, err
	}
	return SalesData{Amount: float64(agg.Total) / 100, NumberOfSales: agg.Count}, nil
}

// UserData fetches the user count and the order total concurrently.
func (s *Service) UserData(ctx context.Context) (UserData, error) {
	var (
		userCount int64
		agg       orderAggregate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&domain.User{}).Count(&userCount).Error
	})
	g.Go(func() (err error) {
		agg, err = s.orderAggregate(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return UserData{}, err
	}

	data := UserData{UserCount: userCount}
	if userCount > 0 {
		data.AverageValuePerUser = float64(agg.Total) / float64(userCount) / 100
	}
	return data, nil
}

func (s *Service) ProductData(ctx context.Context) (ProductData, error) {
	var data ProductData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.countProducts(gctx, true, &data.ActiveCount)
	})
	g.Go(func() error {
		return s.countProducts(gctx, false, &data.InactiveCount)
	})
	if err := g.Wait(); err != nil {
		return ProductData{}, err
	}
	return data, nil
}

func (s *Service) countProducts(ctx context.Context, available bool, n *int64) error {
	return s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("is_available_for_purchase = ?", available).
		Count(n).Error
}

// Cards renders the summary as the three dashboard tiles.
func Cards(sum *Summary) []Card {
	return []Card{
		{
			Title:    "Sales",
			Subtitle: fmt.Sprintf("%s Orders", formatters.FormatNumber(sum.Sales.NumberOfSales)),
			Body:     formatters.FormatCurrency(sum.Sales.Amount),
		},
		{
			Title:    "Customers",
			Subtitle: fmt.Sprintf("%s Average Value", formatters.FormatCurrency(sum.Users.AverageValuePerUser)),
			Body:     formatters.FormatNumber(sum.Users.UserCount),
		},
		{
			Title:    "Active Products",
			Subtitle: fmt.Sprintf("%s Inactive", formatters.FormatNumber(sum.Products.InactiveCount)),
			Body:     formatters.FormatNumber(sum.Products.ActiveCount),
		},
	}
}

// CustomerRow is a user with their order totals
type CustomerRow struct {
	ID         int64     `json:"id,string"`
	Email      string    `json:"email"`
	Orders     int64     `json:"orders"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Customers lists users with their order count and spend, biggest spenders first.
func (s *Service) Customers(ctx context.Context, limit int) ([]CustomerRow, error) {
	var rows []CustomerRow
	db := s.db.WithContext(ctx).Model(&domain.User{}).
		Select("shop_user.id, shop_user.email, shop_user.created_at, " +
			"COUNT(order_record.id) AS orders, COALESCE(SUM(order_record.price_paid_in_cents), 0) AS total_cents").
		Joins("LEFT JOIN order_record ON order_record.user_id = shop_user.id").
		Group("shop_user.id, shop_user.email, shop_user.created_at").
		Order("total_cents DESC").
		Order("shop_user.email ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	return rows, db.Scan(&rows).Error
}

// OrderRow is an order joined with its buyer and product
type OrderRow struct {
	ID               int64     `json:"id,string"`
	ProductName      string    `json:"product_name"`
	Email            string    `json:"email"`
	PricePaidInCents int64     `json:"price_paid_in_cents"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecentOrders lists the latest orders.
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]OrderRow, error) {
	var rows []OrderRow
	db := s.db.WithContext(ctx).Model(&domain.Order{}).
		Select("order_record.id, order_record.price_paid_in_cents, order_record.created_at, " +
			"COALESCE(product.name, '') AS product_name, COALESCE(shop_user.email, '') AS email").
		Joins("LEFT JOIN product ON product.id = order_record.product_id").
		Joins("LEFT JOIN shop_user ON shop_user.id = order_record.user_id").
		Order("order_record.created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	return rows, db.Scan(&rows).Error
}
