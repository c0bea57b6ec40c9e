package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"task_manager/internal/domain"
)

func TestBuildLogListQueryNoFilters(t *testing.T) {
	groupID := uuid.New()

	query, args := buildLogListQuery(groupID, GroupLogFilter{})

	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
	if args[0] != groupID {
		t.Fatalf("expected group id as first arg, got %v", args[0])
	}
	if strings.Contains(query, "$2") {
		t.Fatalf("unexpected extra placeholder in query: %s", query)
	}
	if !strings.Contains(query, "ORDER BY l.created_at DESC, l.id DESC") {
		t.Fatalf("missing ordering clause: %s", query)
	}
}

func TestBuildLogListQueryAllFilters(t *testing.T) {
	groupID := uuid.New()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query, args := buildLogListQuery(groupID, GroupLogFilter{
		DateStart:      &start,
		DateOut:        &end,
		AnchorUsername: "alice",
		GroupName:      "backend",
		EventTypes:     []string{domain.EventTypeAddMember, domain.EventTypeKickedMember},
	})

	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d: %v", len(args), args)
	}

	for _, clause := range []string{
		"l.created_at >= $2",
		"l.created_at <= $3",
		"u.username = $4",
		"g.name = $5",
		"l.event_type = ANY($6)",
	} {
		if !strings.Contains(query, clause) {
			t.Fatalf("missing clause %q in query: %s", clause, query)
		}
	}

	types, ok := args[5].([]string)
	if !ok {
		t.Fatalf("expected []string for event types arg, got %T", args[5])
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 event types, got %v", types)
	}
}

func TestBuildLogListQuerySkipsUnknownEventTypes(t *testing.T) {
	groupID := uuid.New()

	query, args := buildLogListQuery(groupID, GroupLogFilter{
		EventTypes: []string{"No such event", domain.EventTypeInviteMember},
	})

	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	types := args[1].([]string)
	if len(types) != 1 || types[0] != domain.EventTypeInviteMember {
		t.Fatalf("expected only known event type, got %v", types)
	}
	if !strings.Contains(query, "ANY($2)") {
		t.Fatalf("missing event type clause: %s", query)
	}
}

func TestBuildLogListQueryIgnoresFilterOfOnlyUnknownTypes(t *testing.T) {
	groupID := uuid.New()

	query, args := buildLogListQuery(groupID, GroupLogFilter{
		EventTypes: []string{"bogus", "also bogus"},
	})

	if len(args) != 1 {
		t.Fatalf("expected filter to be dropped, got args %v", args)
	}
	if strings.Contains(query, "event_type = ANY") {
		t.Fatalf("event type clause should be absent: %s", query)
	}
}

func TestNormalizeEventTypes(t *testing.T) {
	got := normalizeEventTypes([]string{
		domain.EventTypeAddMember,
		"garbage",
		domain.EventTypeInviteDeflected,
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 types, got %v", got)
	}
	if got[0] != domain.EventTypeAddMember || got[1] != domain.EventTypeInviteDeflected {
		t.Fatalf("unexpected normalized types: %v", got)
	}
}
