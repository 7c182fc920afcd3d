package thought

import (
	"context"
	"fmt"
	"time"

	"thoughtbox/internal/domain"
	models "thoughtbox/internal/domain/models/thought"
	thoughtRepo "thoughtbox/internal/domain/repositories/thought"
	"thoughtbox/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresThoughtRepository implements the ThoughtRepository interface
type PostgresThoughtRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewThoughtRepository creates a new thought repository
func NewThoughtRepository(config *postgres.RepositoryConfig) thoughtRepo.ThoughtRepository {
	return &PostgresThoughtRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// selectColumns reads a thought row plus its collaborator IDs.
func (r *PostgresThoughtRepository) selectColumns() string {
	return fmt.Sprintf(`
		t.id, t.title, t.description, t.owner_id, t.is_private, t.share_token,
		t.selected_version_id, t.modified_by, t.modified_at, t.created_at,
		COALESCE((
			SELECT array_agg(c.user_id::text ORDER BY c.created_at)
			FROM %s c WHERE c.thought_id = t.id
		), '{}')
	`, r.tables.Collaborators)
}

func scanThought(row pgx.Row) (*models.Thought, error) {
	var t models.Thought
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.OwnerID,
		&t.IsPrivate,
		&t.ShareToken,
		&t.SelectedVersion,
		&t.LastModified.ModifiedBy,
		&t.LastModified.Date,
		&t.CreatedAt,
		&t.Collaborators,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a thought
func (r *PostgresThoughtRepository) Create(ctx context.Context, t *models.Thought) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, description, owner_id, is_private, share_token, modified_by, modified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, r.tables.Thoughts)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		t.Title,
		t.Description,
		t.OwnerID,
		t.IsPrivate,
		t.ShareToken,
		t.LastModified.ModifiedBy,
		t.LastModified.Date,
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create thought: %w", err)
	}

	if t.Collaborators == nil {
		t.Collaborators = []string{}
	}
	return nil
}

// GetByID retrieves a thought by ID
func (r *PostgresThoughtRepository) GetByID(ctx context.Context, id string) (*models.Thought, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s t WHERE t.id = $1`, r.selectColumns(), r.tables.Thoughts)

	executor := postgres.GetExecutor(ctx, r.pool)
	t, err := scanThought(executor.QueryRow(ctx, query, id))
	if err != nil {
		return nil, postgres.MapError(err, "thought", id)
	}
	return t, nil
}

// GetByShareToken retrieves a public thought by share token
func (r *PostgresThoughtRepository) GetByShareToken(ctx context.Context, token string) (*models.Thought, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE t.share_token = $1 AND t.is_private = false
	`, r.selectColumns(), r.tables.Thoughts)

	executor := postgres.GetExecutor(ctx, r.pool)
	t, err := scanThought(executor.QueryRow(ctx, query, token))
	if err != nil {
		return nil, postgres.MapError(err, "thought", "for share token")
	}
	return t, nil
}

// ListForUser lists owned and collaborating thoughts, most recently modified first
func (r *PostgresThoughtRepository) ListForUser(ctx context.Context, userID string) ([]models.Thought, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE t.owner_id = $1
		   OR EXISTS (SELECT 1 FROM %s c WHERE c.thought_id = t.id AND c.user_id = $1)
		ORDER BY t.modified_at DESC
	`, r.selectColumns(), r.tables.Thoughts, r.tables.Collaborators)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list thoughts: %w", err)
	}
	defer rows.Close()

	thoughts := []models.Thought{}
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		thoughts = append(thoughts, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thoughts: %w", err)
	}
	return thoughts, nil
}

// UpdateTitle renames a thought
func (r *PostgresThoughtRepository) UpdateTitle(ctx context.Context, id, title, modifiedBy string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET title = $1, modified_by = $2, modified_at = $3
		WHERE id = $4
	`, r.tables.Thoughts)
	return r.execOne(ctx, "rename thought", id, query, title, modifiedBy, at, id)
}

// UpdateDescription sets or clears the description
func (r *PostgresThoughtRepository) UpdateDescription(ctx context.Context, id string, description *string) error {
	query := fmt.Sprintf(`UPDATE %s SET description = $1 WHERE id = $2`, r.tables.Thoughts)
	return r.execOne(ctx, "update thought description", id, query, description, id)
}

// SetSelectedVersion moves the selected version pointer
func (r *PostgresThoughtRepository) SetSelectedVersion(ctx context.Context, id, versionID string) error {
	query := fmt.Sprintf(`UPDATE %s SET selected_version_id = $1 WHERE id = $2`, r.tables.Thoughts)
	return r.execOne(ctx, "set selected version", id, query, versionID, id)
}

// Touch stamps last modified
func (r *PostgresThoughtRepository) Touch(ctx context.Context, id, modifiedBy string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET modified_by = $1, modified_at = $2 WHERE id = $3`, r.tables.Thoughts)
	return r.execOne(ctx, "touch thought", id, query, modifiedBy, at, id)
}

// SetSharing stores or clears the share token
func (r *PostgresThoughtRepository) SetSharing(ctx context.Context, id string, token *string) error {
	query := fmt.Sprintf(`UPDATE %s SET share_token = $1, is_private = $2 WHERE id = $3`, r.tables.Thoughts)
	return r.execOne(ctx, "set sharing", id, query, token, token == nil, id)
}

// Delete removes a thought; versions and collaborators cascade
func (r *PostgresThoughtRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Thoughts)
	return r.execOne(ctx, "delete thought", id, query, id)
}

// AddCollaborator adds a collaborator, ignoring duplicates
func (r *PostgresThoughtRepository) AddCollaborator(ctx context.Context, thoughtID, userID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (thought_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thought_id, user_id) DO NOTHING
	`, r.tables.Collaborators)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, thoughtID, userID, time.Now()); err != nil {
		return postgres.MapError(err, "collaborator", thoughtID)
	}
	return nil
}

// execOne runs an update that must touch exactly one thought row.
func (r *PostgresThoughtRepository) execOne(ctx context.Context, op, id, query string, args ...any) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("thought %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
