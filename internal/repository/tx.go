package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs callbacks inside a single database transaction.
// Repositories join it through their WithTx methods.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
