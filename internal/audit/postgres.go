package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PostgresStore persists records in the audit_logs table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open pool. The caller owns db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Append(ctx context.Context, rec *Record) error {
	if err := validateForAppend(rec); err != nil {
		return err
	}

	detail, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `insert into audit_logs
		(id, actor_id, affected_entity_id, action, detail, source_address, client_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.ActorID, rec.AffectedEntityID, string(rec.Action), detail,
		rec.SourceAddress, rec.ClientAgent, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, q Query) (*Page, error) {
	var (
		conds []string
		args  []any
	)
	if q.ActorID != "" {
		args = append(args, q.ActorID)
		conds = append(conds, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if q.AffectedEntityID != "" {
		args = append(args, q.AffectedEntityID)
		conds = append(conds, fmt.Sprintf("affected_entity_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " where " + strings.Join(conds, " and ")
	}

	page := &Page{Records: []Record{}, Page: q.Page, Limit: q.Limit}
	if err := s.db.QueryRowContext(ctx, "select count(*) from audit_logs"+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count audit records: %w", err)
	}

	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf(`select id, actor_id, affected_entity_id, action, detail, source_address, client_agent, created_at
		from audit_logs%s order by created_at desc, id desc limit $%d offset $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec    Record
			action string
			detail []byte
			entity sql.NullString
			source sql.NullString
			agent  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ActorID, &entity, &action, &detail, &source, &agent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if err := json.Unmarshal(detail, &rec.Detail); err != nil {
			return nil, fmt.Errorf("decode audit detail %s: %w", rec.ID, err)
		}
		rec.Action = ActionKind(action)
		rec.AffectedEntityID = nullable(entity)
		rec.SourceAddress = nullable(source)
		rec.ClientAgent = nullable(agent)
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return page, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// Close is a no-op, the pool is closed by its owner.
func (s *PostgresStore) Close() error { return nil }
