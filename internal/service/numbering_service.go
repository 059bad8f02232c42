package service

import (
	"context"
	"fmt"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/repository"

	"gorm.io/gorm"
)

// NumberingService formats document numbers handed out by the sequence
// allocator, e.g. QUO-000042.
type NumberingService interface {
	// Allocate must run inside the transaction that inserts the document so
	// a rolled-back insert also gives the number back.
	Allocate(ctx context.Context, tx *gorm.DB, t domain.DocumentType) (number string, seq int64, err error)
	// Preview returns the number the next create would likely get. It
	// reserves nothing.
	Preview(ctx context.Context, t domain.DocumentType) (*dto.NextNumberResponse, error)
}

type numberingService struct {
	repo repository.SequenceRepository
}

func NewNumberingService(repo repository.SequenceRepository) NumberingService {
	return &numberingService{repo: repo}
}

// FormatNumber renders prefix and value as PREFIX-000123.
func FormatNumber(prefix string, value int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, domain.NumberPadding, value)
}

func (s *numberingService) Allocate(ctx context.Context, tx *gorm.DB, t domain.DocumentType) (string, int64, error) {
	if !t.IsValid() {
		return "", 0, fmt.Errorf("unknown document type %q", t)
	}
	seq, err := s.repo.Next(ctx, tx, t)
	if err != nil {
		return "", 0, err
	}
	prefix := seq.Prefix
	if prefix == "" {
		prefix = t.Prefix()
	}
	return FormatNumber(prefix, seq.LastValue), seq.LastValue, nil
}

func (s *numberingService) Preview(ctx context.Context, t domain.DocumentType) (*dto.NextNumberResponse, error) {
	if !t.IsValid() {
		return nil, domain.NewValidationError().Add("document_type", "must be QUOTATION or INVOICE")
	}
	seq, err := s.repo.Peek(ctx, t)
	if err != nil {
		return nil, err
	}
	prefix := seq.Prefix
	if prefix == "" {
		prefix = t.Prefix()
	}
	return &dto.NextNumberResponse{
		DocumentType: string(t),
		Number:       FormatNumber(prefix, seq.LastValue+1),
	}, nil
}
