package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"task_manager/internal/domain"
	"task_manager/pkg/logger"
)

// GroupLogFilter — независимые необязательные фильтры, объединяются по AND.
type GroupLogFilter struct {
	DateStart      *time.Time
	DateOut        *time.Time
	AnchorUsername string
	GroupName      string
	EventTypes     []string
}

type GroupLogRepository interface {
	Create(ctx context.Context, q Querier, entry *domain.GroupLog) error
	List(ctx context.Context, groupID uuid.UUID, filter GroupLogFilter) ([]*domain.GroupLog, error)
}

type groupLogRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewGroupLogRepository(db *pgxpool.Pool, log logger.Logger) GroupLogRepository {
	return &groupLogRepository{db: db, log: log}
}

func (r *groupLogRepository) Create(ctx context.Context, q Querier, entry *domain.GroupLog) error {
	query := `
		INSERT INTO group_logs (group_id, event, event_type, anchor_user_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	if entry.Data == nil {
		entry.Data = make(map[string]interface{})
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	err := q.QueryRow(ctx, query,
		entry.GroupID, entry.Event, entry.EventType, entry.AnchorUserID,
		entry.Data, entry.CreatedAt,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create group log", "error", err)
		return err
	}

	return nil
}

func (r *groupLogRepository) List(ctx context.Context, groupID uuid.UUID, filter GroupLogFilter) ([]*domain.GroupLog, error) {
	query, args := buildLogListQuery(groupID, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query group logs", "error", err)
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.GroupLog
	for rows.Next() {
		entry := &domain.GroupLog{}
		err := rows.Scan(
			&entry.ID, &entry.GroupID, &entry.Event, &entry.EventType,
			&entry.AnchorUserID, &entry.AnchorUsername, &entry.GroupName,
			&entry.Data, &entry.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan group log", "error", err)
			return nil, err
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// normalizeEventTypes отбрасывает значения вне известного enum. Запрос с
// одними неизвестными типами игнорирует фильтр, а не падает.
func normalizeEventTypes(types []string) []string {
	var allowed []string
	for _, t := range types {
		if _, ok := domain.AllowedLogEventTypes[t]; ok {
			allowed = append(allowed, t)
		}
	}
	return allowed
}

func buildLogListQuery(groupID uuid.UUID, filter GroupLogFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT l.id, l.group_id, l.event, l.event_type, l.anchor_user_id,
		       u.username, g.name, l.data, l.created_at
		FROM group_logs l
		JOIN groups g ON g.id = l.group_id
		LEFT JOIN users u ON u.id = l.anchor_user_id
		WHERE l.group_id = $1`)

	args := []any{groupID}

	addClause := func(clause string, value any) {
		args = append(args, value)
		fmt.Fprintf(&sb, " AND "+clause, len(args))
	}

	if filter.DateStart != nil {
		addClause("l.created_at >= $%d", *filter.DateStart)
	}
	if filter.DateOut != nil {
		addClause("l.created_at <= $%d", *filter.DateOut)
	}
	if filter.AnchorUsername != "" {
		addClause("u.username = $%d", filter.AnchorUsername)
	}
	if filter.GroupName != "" {
		addClause("g.name = $%d", filter.GroupName)
	}
	if types := normalizeEventTypes(filter.EventTypes); len(types) > 0 {
		addClause("l.event_type = ANY($%d)", types)
	}

	sb.WriteString(" ORDER BY l.created_at DESC, l.id DESC")

	return sb.String(), args
}
