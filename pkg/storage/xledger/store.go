package xledger

import (
	"context"
	"fmt"
)

// Record 带版本号的账本记录。
type Record struct {
	ID      int64 `json:"id" bson:"_id"`
	Balance int64 `json:"balance" bson:"balance"`
	Version int64 `json:"version" bson:"version"`
}

//go:generate mockgen -source=store.go -destination=xledgermock/mock_store.go -package=xledgermock

// Store 账本存储。实现必须并发安全。
type Store interface {
	// FindByID 读取记录，不存在时返回 ErrNotFound。
	FindByID(ctx context.Context, id int64) (Record, error)

	// Save 仅当 rec.Version 等于存储中的版本时写入余额，成功后版本号加一并返回新记录。
	// 版本不一致返回 ErrVersionConflict，记录不存在返回 ErrNotFound。
	Save(ctx context.Context, rec Record) (Record, error)

	// Create 以版本 0 写入新记录，已存在时返回 ErrAlreadyExists。
	Create(ctx context.Context, rec Record) (Record, error)
}

// Charge 对记录执行一次读-改-写：读取当前记录，余额加 amount，版本守卫写回。
func Charge(ctx context.Context, store Store, id, amount int64) (Record, error) {
	rec, err := store.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec.Balance += amount
	saved, err := store.Save(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("charge record %d: %w", id, err)
	}
	return saved, nil
}
