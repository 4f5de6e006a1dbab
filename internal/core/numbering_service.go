package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document type codes used for numbering and stock record source references.
const (
	DocTypePO      = "PO"
	DocTypeASN     = "ASN"
	DocTypeSO      = "SO"
	DocTypePicking = "PK"
)

// NumberingService issues gapless, concurrency-safe document numbers per
// company and document type (e.g. ASN-00042). The sequence row is bumped with
// an upsert inside the caller's transaction, so a rolled-back document never
// burns a number.
type NumberingService interface {
	NextDocumentNumberTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string) (string, error)
}

type numberingService struct {
	pool *pgxpool.Pool
}

func NewNumberingService(pool *pgxpool.Pool) NumberingService {
	return &numberingService{pool: pool}
}

func (s *numberingService) NextDocumentNumberTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string) (string, error) {
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (company_id, type_code, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, type_code)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, companyID, typeCode).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate document number for %s: %w", typeCode, err)
	}
	return fmt.Sprintf("%s-%05d", typeCode, lastNumber), nil
}
