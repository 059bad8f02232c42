package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated caller, passed explicitly into every mutating
// operation and recorded in the audit trail.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) ref() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
