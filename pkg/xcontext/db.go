package xcontext

import (
	"context"

	"gorm.io/gorm"
)

type dbTx struct {
	tx   *gorm.DB
	done bool
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the running transaction if there is one, otherwise the database
// stored by WithDB. The returned handle is bound to ctx.
func DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(dbTxKey{}).(*dbTx); ok && !tx.done {
		return tx.tx.WithContext(ctx)
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		panic("xcontext: no database in context")
	}

	return db.WithContext(ctx)
}

// WithDBTransaction begins a transaction. All repository calls made with the
// returned context run inside it until it is committed or rolled back.
func WithDBTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, dbTxKey{}, &dbTx{tx: DB(ctx).Begin()})
}

func WithCommitDBTransaction(ctx context.Context) error {
	tx, ok := ctx.Value(dbTxKey{}).(*dbTx)
	if !ok || tx.done {
		return nil
	}

	tx.done = true
	return tx.tx.Commit().Error
}

// WithRollbackDBTransaction rolls back the transaction unless it was already
// committed. It is safe to defer right after WithDBTransaction.
func WithRollbackDBTransaction(ctx context.Context) {
	tx, ok := ctx.Value(dbTxKey{}).(*dbTx)
	if !ok || tx.done {
		return
	}

	tx.done = true
	tx.tx.Rollback()
}
