package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ItemService manages item master data.
type ItemService interface {
	CreateItem(ctx context.Context, companyID int, code, name, unit string, purchasePrice, salePrice decimal.Decimal) (*Item, error)
	GetItem(ctx context.Context, companyID, itemID int) (*Item, error)
	GetItems(ctx context.Context, companyID int) ([]Item, error)
}

type itemService struct {
	pool *pgxpool.Pool
}

func NewItemService(pool *pgxpool.Pool) ItemService {
	return &itemService{pool: pool}
}

func (s *itemService) CreateItem(ctx context.Context, companyID int, code, name, unit string, purchasePrice, salePrice decimal.Decimal) (*Item, error) {
	if purchasePrice.IsNegative() || salePrice.IsNegative() {
		return nil, fmt.Errorf("item prices cannot be negative")
	}

	var it Item
	err := s.pool.QueryRow(ctx, `
		INSERT INTO items (company_id, code, name, unit, purchase_price, sale_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, code, name, unit, purchase_price, sale_price, is_active, created_at
	`, companyID, code, name, unit, purchasePrice, salePrice).Scan(
		&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.Unit,
		&it.PurchasePrice, &it.SalePrice, &it.IsActive, &it.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &it, nil
}

func (s *itemService) GetItem(ctx context.Context, companyID, itemID int) (*Item, error) {
	var it Item
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, unit, purchase_price, sale_price, is_active, created_at
		FROM items
		WHERE company_id = $1 AND id = $2
	`, companyID, itemID).Scan(
		&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.Unit,
		&it.PurchasePrice, &it.SalePrice, &it.IsActive, &it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %d not found", itemID)
		}
		return nil, fmt.Errorf("failed to fetch item %d: %w", itemID, err)
	}
	return &it, nil
}

func (s *itemService) GetItems(ctx context.Context, companyID int) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, unit, purchase_price, sale_price, is_active, created_at
		FROM items
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.Unit,
			&it.PurchasePrice, &it.SalePrice, &it.IsActive, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}
