package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"task_manager/pkg/logger"
)

const (
	// TTL кэша участников — короткий, членство меняется через workflow
	MemberCacheTTL = 60 * time.Second

	memberCacheKeyPrefix = "group:%s:members"
)

// MemberCacheRepository — Redis-кэш наборов участников групп. Используется
// только для lookup'ов членства (fan-out уведомлений, проверки доступа).
type MemberCacheRepository interface {
	GetMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, bool, error)
	SetMembers(ctx context.Context, groupID uuid.UUID, members []uuid.UUID) error
	Invalidate(ctx context.Context, groupID uuid.UUID) error
}

type memberCacheRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewMemberCacheRepository(rdb *redis.Client, log logger.Logger) MemberCacheRepository {
	return &memberCacheRepository{rdb: rdb, log: log}
}

func (r *memberCacheRepository) key(groupID uuid.UUID) string {
	return fmt.Sprintf(memberCacheKeyPrefix, groupID)
}

func (r *memberCacheRepository) GetMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, bool, error) {
	data, err := r.rdb.Get(ctx, r.key(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.log.Error("Failed to read member cache", "error", err)
		return nil, false, err
	}

	var members []uuid.UUID
	if err := json.Unmarshal(data, &members); err != nil {
		// Битую запись просто выбрасываем
		_ = r.rdb.Del(ctx, r.key(groupID)).Err()
		return nil, false, nil
	}

	return members, true, nil
}

func (r *memberCacheRepository) SetMembers(ctx context.Context, groupID uuid.UUID, members []uuid.UUID) error {
	data, err := json.Marshal(members)
	if err != nil {
		return err
	}

	if err := r.rdb.Set(ctx, r.key(groupID), data, MemberCacheTTL).Err(); err != nil {
		r.log.Error("Failed to write member cache", "error", err)
		return err
	}

	return nil
}

func (r *memberCacheRepository) Invalidate(ctx context.Context, groupID uuid.UUID) error {
	if err := r.rdb.Del(ctx, r.key(groupID)).Err(); err != nil {
		r.log.Error("Failed to invalidate member cache", "error", err)
		return err
	}
	return nil
}
