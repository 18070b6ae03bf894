package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/patrickmn/go-cache"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
)

const whitelistCacheKey = "user_whitelist"

// DefaultPageSize bounds a single feed page.
const DefaultPageSize = 50

// RecordStore persists flagged revisions in the central MySQL database.
type RecordStore struct {
	db    *sql.DB
	cache *cache.Cache
}

var _ ports.RecordStore = (*RecordStore)(nil)

// NewRecordStore wires a sql.DB implementation. The whitelist is cached for
// whitelistTTL so every feed load does not re-query it.
func NewRecordStore(db *sql.DB, whitelistTTL time.Duration) *RecordStore {
	if whitelistTTL <= 0 {
		whitelistTTL = 5 * time.Minute
	}
	return &RecordStore{
		db:    db,
		cache: cache.New(whitelistTTL, whitelistTTL*2),
	}
}

// ListRecords returns one cursor-ordered page of raw records.
func (s *RecordStore) ListRecords(ctx context.Context, q ports.RecordQuery) ([]domain.Record, error) {
	records := []domain.Record{}
	if s.db == nil {
		return records, nil
	}

	stmt, args, err := buildListQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec        domain.Record
			status     int
			statusUser sql.NullString
			reviewedAt sql.NullTime
			report     sql.NullString
		)
		err := rows.Scan(
			&rec.ID,
			&rec.DiffRevisionID,
			&rec.PageNamespace,
			&rec.PageTitle,
			&rec.DiffTimestamp,
			&status,
			&statusUser,
			&reviewedAt,
			&report,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.Status = domain.ReviewStatus(status)
		rec.StatusUser = statusUser.String
		if reviewedAt.Valid {
			at := reviewedAt.Time
			rec.ReviewTimestamp = &at
		}
		rec.ReportText = report.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return records, nil
}

func buildListQuery(q ports.RecordQuery) sq.SelectBuilder {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}

	query := sq.Select(
		"id", "diff", "page_ns", "page_title", "diff_timestamp",
		"status", "status_user", "review_timestamp", "report",
	).
		From("copyright_diffs").
		Where(sq.Eq{"lang": q.Lang}).
		OrderBy("id DESC").
		Limit(limit)

	switch {
	case q.RecordID > 0:
		query = query.Where(sq.Eq{"id": q.RecordID})
	case q.LastID > 0:
		query = query.Where(sq.Lt{"id": q.LastID})
	}

	switch q.Filter {
	case domain.FilterOpen:
		query = query.Where(sq.Eq{"status": int(domain.StatusReady)})
	case "reviewed":
		query = query.Where(sq.NotEq{"status": int(domain.StatusReady)})
	}

	return query
}

// CurrentStatus returns the stored status and reviewer of one record.
func (s *RecordStore) CurrentStatus(ctx context.Context, id int64) (domain.ReviewStatus, string, error) {
	if s.db == nil {
		return domain.StatusReady, "", fmt.Errorf("record store is not connected")
	}

	stmt, args, err := sq.Select("status", "status_user").
		From("copyright_diffs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.StatusReady, "", fmt.Errorf("build status query: %w", err)
	}

	var status int
	var statusUser sql.NullString
	err = s.db.QueryRowContext(ctx, stmt, args...).Scan(&status, &statusUser)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StatusReady, "", fmt.Errorf("record %d not found", id)
	}
	if err != nil {
		return domain.StatusReady, "", fmt.Errorf("query status: %w", err)
	}

	return domain.ReviewStatus(status), statusUser.String, nil
}

// UpdateReview persists a review verdict with its acting reviewer and time.
func (s *RecordStore) UpdateReview(ctx context.Context, id int64, status domain.ReviewStatus, actor string, at time.Time) error {
	if s.db == nil {
		return fmt.Errorf("record store is not connected")
	}

	stmt, args, err := sq.Update("copyright_diffs").
		Set("status", int(status)).
		Set("status_user", actor).
		Set("review_timestamp", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build review update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	return nil
}

// ClearReview reverts a record to the ready state, clearing reviewer and
// timestamp.
func (s *RecordStore) ClearReview(ctx context.Context, id int64) error {
	if s.db == nil {
		return fmt.Errorf("record store is not connected")
	}

	stmt, args, err := sq.Update("copyright_diffs").
		Set("status", int(domain.StatusReady)).
		Set("status_user", nil).
		Set("review_timestamp", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build review clear: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("clear review: %w", err)
	}

	return nil
}

// UserWhitelist returns the set of editors exempted from manual review.
func (s *RecordStore) UserWhitelist(ctx context.Context) (map[string]struct{}, error) {
	if cached, ok := s.cache.Get(whitelistCacheKey); ok {
		return cached.(map[string]struct{}), nil
	}

	whitelist := map[string]struct{}{}
	if s.db == nil {
		return whitelist, nil
	}

	stmt, args, err := sq.Select("user_name").From("users_whitelist").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build whitelist query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query whitelist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		whitelist[name] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	s.cache.SetDefault(whitelistCacheKey, whitelist)
	return whitelist, nil
}

// WikiProjects lists the projects tracking the given page title.
func (s *RecordStore) WikiProjects(ctx context.Context, lang, title string) ([]string, error) {
	projects := []string{}
	if s.db == nil {
		return projects, nil
	}

	stmt, args, err := sq.Select("wp_project").
		From("wikiprojects").
		Where(sq.Eq{"lang": lang, "page_title": title}).
		OrderBy("wp_project ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build wikiprojects query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query wikiprojects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("scan wikiproject: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return projects, nil
}
