package wikidata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
)

// Directory answers batched reputation and liveness questions against a
// single wiki replica database.
type Directory struct {
	db *sql.DB
}

var _ ports.WikiDirectory = (*Directory)(nil)

// NewDirectory wires a replica connection.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// RevisionEditors resolves each revision id to the name of the actor who
// made it. Revisions whose actor cannot be resolved are simply absent from
// the result.
func (d *Directory) RevisionEditors(ctx context.Context, revIDs []int64) (map[int64]string, error) {
	editors := map[int64]string{}
	if d.db == nil || len(revIDs) == 0 {
		return editors, nil
	}

	query := sq.Select("revision.rev_id", "actor.actor_name").
		From("revision").
		Join("actor ON actor.actor_id = revision.rev_actor").
		Where(sq.Eq{"revision.rev_id": revIDs})

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query revision editors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var revID int64
		var editor string
		if err := rows.Scan(&revID, &editor); err != nil {
			return nil, fmt.Errorf("scan revision editor: %w", err)
		}
		editors[revID] = editor
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return editors, nil
}

// EditCounts returns the lifetime edit count per editor name.
func (d *Directory) EditCounts(ctx context.Context, editors []string) (map[string]int, error) {
	counts := map[string]int{}
	if d.db == nil || len(editors) == 0 {
		return counts, nil
	}

	query := sq.Select("user_name", "user_editcount").
		From("user").
		Where(sq.Eq{"user_name": editors})

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query edit counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count sql.NullInt64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan edit count: %w", err)
		}
		counts[name] = int(count.Int64)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return counts, nil
}

// DeadPages reports which of the given display titles no longer exist on
// the wiki. Titles present in the result map are dead.
func (d *Directory) DeadPages(ctx context.Context, titles []string) (map[string]bool, error) {
	dead := map[string]bool{}
	if d.db == nil || len(titles) == 0 {
		return dead, nil
	}

	conds := make(sq.Or, 0, len(titles))
	for _, title := range titles {
		ns, text := SplitTitle(title)
		conds = append(conds, sq.And{
			sq.Eq{"page_namespace": ns},
			sq.Eq{"page_title": text},
		})
	}

	query := sq.Select("page_namespace", "page_title").From("page").Where(conds)

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query live pages: %w", err)
	}
	defer rows.Close()

	alive := map[string]bool{}
	for rows.Next() {
		var ns int
		var text string
		if err := rows.Scan(&ns, &text); err != nil {
			return nil, fmt.Errorf("scan live page: %w", err)
		}
		alive[JoinTitle(ns, text)] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	for _, title := range titles {
		if !alive[title] {
			dead[title] = true
		}
	}

	return dead, nil
}

// IsActorBlocked reports whether the actor currently carries a block on
// this wiki.
func (d *Directory) IsActorBlocked(ctx context.Context, actor string) (bool, error) {
	if d.db == nil || actor == "" {
		return false, nil
	}

	stmt, args, err := sq.Select("COUNT(*)").
		From("ipblocks").
		Where(sq.Eq{"ipb_address": actor}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build block query: %w", err)
	}

	var blocks int
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&blocks); err != nil {
		return false, fmt.Errorf("query blocks: %w", err)
	}

	return blocks > 0, nil
}

func (d *Directory) query(ctx context.Context, builder sq.SelectBuilder) (*sql.Rows, error) {
	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return d.db.QueryContext(ctx, stmt, args...)
}

// SplitTitle maps a display title to the (namespace, db title) pair stored
// in the page table.
func SplitTitle(title string) (int, string) {
	ns := 0
	if rest, ok := strings.CutPrefix(title, "Draft:"); ok {
		ns = domain.DraftNamespace
		title = rest
	}
	return ns, strings.ReplaceAll(title, " ", "_")
}

// JoinTitle is the inverse of SplitTitle for comparing query results with
// their input titles.
func JoinTitle(ns int, text string) string {
	return domain.DisplayTitle(ns, text)
}
