package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"task_manager/pkg/logger"
)

// Querier — общий знаменатель *pgxpool.Pool и pgx.Tx. Методы репозиториев,
// участвующие в workflow-транзакциях, принимают его явно.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repositories struct {
	Pool         *pgxpool.Pool
	User         UserRepository
	Group        GroupRepository
	GroupLog     GroupLogRepository
	Task         TaskRepository
	Chat         ChatRepository
	Notification NotificationRepository
	MemberCache  MemberCacheRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Pool:         db,
		User:         NewUserRepository(db, log),
		Group:        NewGroupRepository(db, log),
		GroupLog:     NewGroupLogRepository(db, log),
		Task:         NewTaskRepository(db, log),
		Chat:         NewChatRepository(db, log),
		Notification: NewNotificationRepository(db, log),
		MemberCache:  NewMemberCacheRepository(rdb, log),
		RateLimit:    NewRateLimitRepository(rdb, log),
	}
}
