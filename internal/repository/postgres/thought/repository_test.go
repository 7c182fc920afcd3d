package thought

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
	thoughtSvc "thoughtbox/internal/domain/services/thought"
	"thoughtbox/internal/repository/postgres"
	serviceAuth "thoughtbox/internal/service/auth"
	serviceThought "thoughtbox/internal/service/thought"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run against a real database and are skipped unless
// TEST_DATABASE_URL is set. Each test gets its own table prefix.
func newTestRepos(t *testing.T) *postgres.RepositoryConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, url)
	require.NoError(t, err)
	tables := postgres.NewTableNames("it_" + uuid.NewString()[:8] + "_")
	require.NoError(t, postgres.EnsureSchema(ctx, pool, tables))
	t.Cleanup(func() {
		_ = postgres.DropTables(context.Background(), pool, tables)
		pool.Close()
	})

	return &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func paragraph(text string) doctree.Document {
	return doctree.Document{&doctree.Paragraph{Children: []doctree.Text{{Text: text}}}}
}

func TestVersionRepository_OrderAndCoreGuards(t *testing.T) {
	cfg := newTestRepos(t)
	ctx := context.Background()
	thoughts := NewThoughtRepository(cfg)
	versions := NewVersionRepository(cfg)

	owner := uuid.NewString()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	th := &models.Thought{
		Title:        "Ideas",
		OwnerID:      owner,
		IsPrivate:    true,
		LastModified: models.LastModified{ModifiedBy: owner, Date: base},
		CreatedAt:    base,
	}
	require.NoError(t, thoughts.Create(ctx, th))

	// Inserted out of order; listing must not depend on insertion order.
	newVersion := func(text string, number int, core bool, offset time.Duration) *models.Version {
		v := &models.Version{
			ThoughtID:     th.ID,
			Content:       paragraph(text),
			VersionNumber: number,
			ChangeLabel:   models.ChangeLight,
			IsCore:        core,
			CreatedAt:     base.Add(offset),
			ModifiedBy:    owner,
		}
		require.NoError(t, versions.Create(ctx, v))
		return v
	}
	third := newVersion("third", 4, false, 3*time.Hour)
	first := newVersion("first", 2, false, time.Hour)
	core := newVersion("core", models.CoreVersionNumber, true, 0)
	second := newVersion("second", 3, false, 2*time.Hour)

	list, err := versions.ListByThought(ctx, th.ID)
	require.NoError(t, err)
	var ids []string
	for _, v := range list {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{core.ID, first.ID, second.ID, third.ID}, ids)
	assert.True(t, list[0].IsCore)
	assert.Equal(t, paragraph("second"), list[2].Content)

	assert.ErrorIs(t, versions.SetNumber(ctx, core.ID, 9), domain.ErrNotFound, "the core version is never renumbered")
	assert.ErrorIs(t, versions.Delete(ctx, core.ID), domain.ErrNotFound, "the core version is never deleted")
	got, err := versions.GetByID(ctx, core.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CoreVersionNumber, got.VersionNumber)

	dup := &models.Version{ThoughtID: th.ID, Content: paragraph("dup"), VersionNumber: 2,
		ChangeLabel: models.ChangeLight, CreatedAt: base, ModifiedBy: owner}
	var conflict *domain.ConflictError
	assert.True(t, errors.As(versions.Create(ctx, dup), &conflict), "numbers are unique per thought")

	_, err = versions.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVersionRepository_RenumberThroughDuplicatesInTx(t *testing.T) {
	cfg := newTestRepos(t)
	ctx := context.Background()
	thoughts := NewThoughtRepository(cfg)
	versions := NewVersionRepository(cfg)
	tx := postgres.NewTransactionManager(cfg.Pool, cfg.Logger)

	owner := uuid.NewString()
	now := time.Now().UTC()
	th := &models.Thought{Title: "Swap", OwnerID: owner, IsPrivate: true,
		LastModified: models.LastModified{ModifiedBy: owner, Date: now}, CreatedAt: now}
	require.NoError(t, thoughts.Create(ctx, th))

	a := &models.Version{ThoughtID: th.ID, Content: paragraph("a"), VersionNumber: 2, CreatedAt: now, ModifiedBy: owner}
	b := &models.Version{ThoughtID: th.ID, Content: paragraph("b"), VersionNumber: 3, CreatedAt: now, ModifiedBy: owner}
	require.NoError(t, versions.Create(ctx, a))
	require.NoError(t, versions.Create(ctx, b))

	err := tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := versions.SetNumber(ctx, a.ID, 3); err != nil {
			return err
		}
		return versions.SetNumber(ctx, b.ID, 2)
	})
	require.NoError(t, err, "uniqueness is checked at commit")

	gotA, err := versions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gotA.VersionNumber)
}

func TestDeleteVersion_RenumbersDensely(t *testing.T) {
	cfg := newTestRepos(t)
	ctx := context.Background()
	thoughtRepo := NewThoughtRepository(cfg)
	versionRepo := NewVersionRepository(cfg)
	tx := postgres.NewTransactionManager(cfg.Pool, cfg.Logger)
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(thoughtRepo)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	thoughts := serviceThought.NewThoughtService(thoughtRepo, versionRepo, tx, authorizer, clock, "http://localhost:3000", cfg.Logger)
	versions := serviceThought.NewVersionService(thoughtRepo, versionRepo, tx, authorizer, clock, cfg.Logger)

	owner := uuid.NewString()
	th, err := thoughts.CreateThought(ctx, &thoughtSvc.CreateThoughtRequest{UserID: owner, Title: "Plans"})
	require.NoError(t, err)

	var created []*models.Version
	for range 4 {
		clock.Advance(time.Minute)
		v, err := versions.CreateVersion(ctx, owner, th.ID, &thoughtSvc.CreateVersionRequest{})
		require.NoError(t, err)
		created = append(created, v)
	}
	require.NoError(t, versions.SetSelectedVersion(ctx, owner, th.ID, created[3].ID))

	// Numbers [2,3,4,5]: dropping 3 leaves [2,3,4] in creation order.
	require.NoError(t, versions.DeleteVersion(ctx, owner, th.ID, created[1].ID))
	list, err := versions.GetThoughtVersions(ctx, owner, th.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.True(t, list[0].IsCore)
	assert.Equal(t, models.CoreVersionNumber, list[0].VersionNumber)
	for i, want := range []*models.Version{created[0], created[2], created[3]} {
		assert.Equal(t, want.ID, list[i+1].ID)
		assert.Equal(t, i+2, list[i+1].VersionNumber)
	}

	// Deleting the selected version falls back to the core version.
	require.NoError(t, versions.DeleteVersion(ctx, owner, th.ID, created[3].ID))
	selected, err := versions.GetSelectedVersion(ctx, owner, th.ID)
	require.NoError(t, err)
	assert.True(t, selected.IsCore)

	assert.ErrorIs(t, versions.DeleteVersion(ctx, owner, th.ID, list[0].ID), domain.ErrRejected)
}
