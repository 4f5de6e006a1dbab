package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PartnerService manages the two parties documents reference: suppliers for
// purchase orders and customers for sales orders.
type PartnerService interface {
	CreateSupplier(ctx context.Context, companyID int, code, name, email, phone, address string) (*Supplier, error)
	GetSuppliers(ctx context.Context, companyID int) ([]Supplier, error)
	CreateCustomer(ctx context.Context, companyID int, code, name, email, phone, address string) (*Customer, error)
	GetCustomers(ctx context.Context, companyID int) ([]Customer, error)
}

type partnerService struct {
	pool *pgxpool.Pool
}

func NewPartnerService(pool *pgxpool.Pool) PartnerService {
	return &partnerService{pool: pool}
}

func (s *partnerService) CreateSupplier(ctx context.Context, companyID int, code, name, email, phone, address string) (*Supplier, error) {
	var sup Supplier
	err := s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (company_id, code, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, code, name, email, phone, address, is_active, created_at
	`, companyID, code, name, email, phone, address).Scan(
		&sup.ID, &sup.CompanyID, &sup.Code, &sup.Name, &sup.Email, &sup.Phone, &sup.Address,
		&sup.IsActive, &sup.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return &sup, nil
}

func (s *partnerService) GetSuppliers(ctx context.Context, companyID int) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, email, phone, address, is_active, created_at
		FROM suppliers
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(
			&sup.ID, &sup.CompanyID, &sup.Code, &sup.Name, &sup.Email, &sup.Phone, &sup.Address,
			&sup.IsActive, &sup.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, nil
}

func (s *partnerService) CreateCustomer(ctx context.Context, companyID int, code, name, email, phone, address string) (*Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (company_id, code, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, code, name, email, phone, address, is_active, created_at
	`, companyID, code, name, email, phone, address).Scan(
		&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &c, nil
}

func (s *partnerService) GetCustomers(ctx context.Context, companyID int) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, email, phone, address, is_active, created_at
		FROM customers
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.IsActive, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// resolveCompanyID looks up the internal company ID from a company code.
// Shared by the app facade through ResolveCompany.
func resolveCompanyID(ctx context.Context, q pgxQuerier, companyCode string) (int, error) {
	var id int
	err := q.QueryRow(ctx, "SELECT id FROM companies WHERE company_code = $1", companyCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("company code %s not found", companyCode)
		}
		return 0, fmt.Errorf("failed to resolve company %s: %w", companyCode, err)
	}
	return id, nil
}

// ResolveCompany maps a company code to its internal ID using the pool.
func ResolveCompany(ctx context.Context, pool *pgxpool.Pool, companyCode string) (int, error) {
	return resolveCompanyID(ctx, pool, companyCode)
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
