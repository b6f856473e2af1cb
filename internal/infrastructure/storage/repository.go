package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/ports"
)

// ErrAuthorNotFound is returned when a write targets an unknown author.
var ErrAuthorNotFound = errors.New("author not found")

// Repository persists the canon in Postgres or SQLite. Sources live in one JSON column per author.
type Repository struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

var (
	_ ports.AuthorRepository = (*Repository)(nil)
	_ ports.CanonRepository  = (*Repository)(nil)
)

// NewRepository wires a sql.DB opened with driver.
func NewRepository(db *sql.DB, driver string) *Repository {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &Repository{db: db, driver: driver, sb: sb}
}

func (r *Repository) hasSources() sq.Sqlizer {
	if r.driver == DriverPostgres {
		return sq.Expr("jsonb_array_length(sources) > 0")
	}
	return sq.Expr("json_array_length(sources) > 0")
}

// ListAuthors returns every author ordered by name.
func (r *Repository) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	return r.listAuthors(ctx, nil)
}

// ListAuthorsWithSources returns authors whose source list is non-empty.
func (r *Repository) ListAuthorsWithSources(ctx context.Context) ([]domain.Author, error) {
	return r.listAuthors(ctx, r.hasSources())
}

func (r *Repository) listAuthors(ctx context.Context, filter sq.Sqlizer) ([]domain.Author, error) {
	if r.db == nil {
		return nil, errors.New("database not configured")
	}

	builder := r.sb.Select("id", "name", "affiliation", "sources").From("authors").OrderBy("name", "id")
	if filter != nil {
		builder = builder.Where(filter)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build authors query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}

	var authors []domain.Author
	for rows.Next() {
		var (
			author domain.Author
			raw    []byte
		)
		if err := rows.Scan(&author.ID, &author.Name, &author.Affiliation, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan author: %w", err)
		}
		author.Sources, err = domain.DecodeSources(raw)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("author %s: %w", author.ID, err)
		}
		authors = append(authors, author)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return authors, nil
}

// UpdateAuthorSources replaces the full source list of one author.
func (r *Repository) UpdateAuthorSources(ctx context.Context, authorID string, sources []domain.Source) error {
	if r.db == nil {
		return errors.New("database not configured")
	}

	data, err := domain.EncodeSources(sources)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Update("authors").
		Set("sources", string(data)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": authorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update sources: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrAuthorNotFound, authorID)
	}

	return nil
}

// UpsertAuthor inserts or replaces an author record.
func (r *Repository) UpsertAuthor(ctx context.Context, author domain.Author) error {
	data, err := domain.EncodeSources(author.Sources)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("authors").
		Columns("id", "name", "affiliation", "sources").
		Values(author.ID, author.Name, author.Affiliation, string(data)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			affiliation = excluded.affiliation,
			sources = excluded.sources,
			updated_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build author upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert author %s: %w", author.ID, err)
	}
	return nil
}

// UpsertCamp writes a camp and replaces its memberships in one transaction.
func (r *Repository) UpsertCamp(ctx context.Context, camp domain.Camp) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Insert("camps").
		Columns("id", "name", "domain_id").
		Values(camp.ID, camp.Name, int(camp.Domain)).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name, domain_id = excluded.domain_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build camp upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert camp %s: %w", camp.ID, err)
	}

	query, args, err = r.sb.Delete("camp_authors").Where(sq.Eq{"camp_id": camp.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build membership delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear memberships %s: %w", camp.ID, err)
	}

	if len(camp.Members) > 0 {
		insert := r.sb.Insert("camp_authors").
			Columns("camp_id", "author_id", "relevance", "position_summary", "quote")
		seen := make(map[string]struct{}, len(camp.Members))
		for _, m := range camp.Members {
			if _, dup := seen[m.AuthorID]; dup {
				continue
			}
			seen[m.AuthorID] = struct{}{}
			insert = insert.Values(camp.ID, m.AuthorID, string(m.Relevance), m.PositionSummary, m.Quote)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build membership insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert memberships %s: %w", camp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit camp %s: %w", camp.ID, err)
	}
	return nil
}

// ListCamps returns every camp with its members.
func (r *Repository) ListCamps(ctx context.Context) ([]domain.Camp, error) {
	if r.db == nil {
		return nil, errors.New("database not configured")
	}

	query, args, err := r.sb.Select("id", "name", "domain_id").From("camps").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build camps query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query camps: %w", err)
	}

	var camps []domain.Camp
	index := map[string]int{}
	for rows.Next() {
		var (
			camp     domain.Camp
			domainID int
		)
		if err := rows.Scan(&camp.ID, &camp.Name, &domainID); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan camp: %w", err)
		}
		camp.Domain = domain.DomainID(domainID)
		index[camp.ID] = len(camps)
		camps = append(camps, camp)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	if err := r.attachMembers(ctx, camps, index); err != nil {
		return nil, err
	}
	return camps, nil
}

func (r *Repository) attachMembers(ctx context.Context, camps []domain.Camp, index map[string]int) error {
	query, args, err := r.sb.Select("camp_id", "author_id", "relevance", "position_summary", "quote").
		From("camp_authors").
		OrderBy("camp_id", "author_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build members query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query members: %w", err)
	}

	for rows.Next() {
		var (
			campID    string
			relevance string
			member    domain.CampAuthor
		)
		if err := rows.Scan(&campID, &member.AuthorID, &relevance, &member.PositionSummary, &member.Quote); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan member: %w", err)
		}
		member.Relevance = domain.Relevance(relevance)
		if i, ok := index[campID]; ok {
			camps[i].Members = append(camps[i].Members, member)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}
