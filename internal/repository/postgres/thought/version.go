package thought

import (
	"context"
	"encoding/json"
	"fmt"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
	thoughtRepo "thoughtbox/internal/domain/repositories/thought"
	"thoughtbox/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVersionRepository implements the VersionRepository interface.
// Content is stored as JSONB in the document wire shape and re-validated
// with doctree.Parse on every read.
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *postgres.RepositoryConfig) thoughtRepo.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const versionColumns = `id, thought_id, content, version_number, title, change_label, is_core, created_at, modified_by, parent_version_number`

func scanVersion(row pgx.Row) (*models.Version, error) {
	var (
		v       models.Version
		content []byte
	)
	err := row.Scan(
		&v.ID,
		&v.ThoughtID,
		&content,
		&v.VersionNumber,
		&v.Title,
		&v.ChangeLabel,
		&v.IsCore,
		&v.CreatedAt,
		&v.ModifiedBy,
		&v.ParentVersionNumber,
	)
	if err != nil {
		return nil, err
	}
	doc, err := doctree.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("version %s content: %w", v.ID, err)
	}
	v.Content = doc
	return &v, nil
}

func encodeContent(doc doctree.Document) ([]byte, error) {
	if len(doc) == 0 {
		doc = doctree.New()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return data, nil
}

// Create inserts a version
func (r *PostgresVersionRepository) Create(ctx context.Context, v *models.Version) error {
	content, err := encodeContent(v.Content)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thought_id, content, version_number, title, change_label, is_core, created_at, modified_by, parent_version_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		v.ThoughtID,
		content,
		v.VersionNumber,
		v.Title,
		v.ChangeLabel,
		v.IsCore,
		v.CreatedAt,
		v.ModifiedBy,
		v.ParentVersionNumber,
	).Scan(&v.ID)
	if err != nil {
		return postgres.MapError(err, "version", fmt.Sprintf("%s/%d", v.ThoughtID, v.VersionNumber))
	}
	return nil
}

// GetByID retrieves a version
func (r *PostgresVersionRepository) GetByID(ctx context.Context, id string) (*models.Version, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, versionColumns, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, id))
	if err != nil {
		return nil, postgres.MapError(err, "version", id)
	}
	return v, nil
}

// ListByThought returns the core version first, then the rest by creation time
func (r *PostgresVersionRepository) ListByThought(ctx context.Context, thoughtID string) ([]models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE thought_id = $1
		ORDER BY is_core DESC, created_at ASC, version_number ASC
	`, versionColumns, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, thoughtID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []models.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// UpdateContent replaces a version's content
func (r *PostgresVersionRepository) UpdateContent(ctx context.Context, id string, content doctree.Document, modifiedBy string) error {
	data, err := encodeContent(content)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET content = $1, modified_by = $2 WHERE id = $3`, r.tables.Versions)
	return r.execOne(ctx, "update version content", id, query, data, modifiedBy, id)
}

// UpdateTitle sets the title snapshot
func (r *PostgresVersionRepository) UpdateTitle(ctx context.Context, id, title string) error {
	query := fmt.Sprintf(`UPDATE %s SET title = $1 WHERE id = $2`, r.tables.Versions)
	return r.execOne(ctx, "update version title", id, query, title, id)
}

// SetNumber renumbers a version
func (r *PostgresVersionRepository) SetNumber(ctx context.Context, id string, number int) error {
	query := fmt.Sprintf(`UPDATE %s SET version_number = $1 WHERE id = $2 AND is_core = false`, r.tables.Versions)
	return r.execOne(ctx, "renumber version", id, query, number, id)
}

// Delete removes a non-core version
func (r *PostgresVersionRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND is_core = false`, r.tables.Versions)
	return r.execOne(ctx, "delete version", id, query, id)
}

func (r *PostgresVersionRepository) execOne(ctx context.Context, op, id, query string, args ...any) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
