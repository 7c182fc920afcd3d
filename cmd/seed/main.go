package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	"thoughtbox/internal/auth"
	"thoughtbox/internal/config"
	thoughtSvc "thoughtbox/internal/domain/services/thought"
	"thoughtbox/internal/repository/postgres"
	postgresThought "thoughtbox/internal/repository/postgres/thought"
	serviceAuth "thoughtbox/internal/service/auth"
	serviceThought "thoughtbox/internal/service/thought"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed thoughts")
	clearData := flag.Bool("clear-data", false, "Delete the seed user's thoughts (keep schema)")
	userID := flag.String("user-id", os.Getenv("SEED_USER_ID"), "Owner of the seeded thoughts")
	demoEmail := flag.String("demo-email", "", "Create (or reuse) this Supabase account and seed its thoughts")
	demoPassword := flag.String("demo-password", "thoughtbox-demo", "Password for a newly created demo account")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: --drop-tables and --clear-data are not allowed in production")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := postgres.DropTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Printf("Ensuring schema (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	if *demoEmail != "" {
		if cfg.SupabaseKey == "" {
			log.Fatalf("SUPABASE_KEY is required to create the demo account")
		}
		admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
		id, err := admin.EnsureUser(ctx, *demoEmail, *demoPassword)
		if err != nil {
			log.Fatalf("Failed to ensure demo account: %v", err)
		}
		*userID = id
		log.Printf("Demo account %s (ID: %s)", *demoEmail, id)
	}
	if *userID == "" {
		log.Fatalf("a seed user is required: pass --user-id, SEED_USER_ID or --demo-email")
	}

	log.Printf("Clearing thoughts owned by %s...", *userID)
	if err := clearUserData(ctx, pool, tables, *userID); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("Data cleared")
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	thoughtRepo := postgresThought.NewThoughtRepository(repoConfig)
	versionRepo := postgresThought.NewVersionRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(thoughtRepo)
	clock := clockwork.NewRealClock()

	thoughts := serviceThought.NewThoughtService(thoughtRepo, versionRepo, txManager, authorizer, clock, cfg.PublicBaseURL, logger)
	versions := serviceThought.NewVersionService(thoughtRepo, versionRepo, txManager, authorizer, clock, logger)

	seeds := getSeedThoughts()
	for i, s := range seeds {
		// Go through the services so seeded rows pass the same validation
		t, err := thoughts.CreateThought(ctx, &thoughtSvc.CreateThoughtRequest{
			UserID:  *userID,
			Title:   s.title,
			Content: s.core,
		})
		if err != nil {
			log.Printf("Failed to create thought %q: %v", s.title, err)
			continue
		}
		for _, content := range s.versions {
			if _, err := versions.CreateVersion(ctx, *userID, t.ID, &thoughtSvc.CreateVersionRequest{Content: content}); err != nil {
				log.Printf("Failed to create version of %q: %v", s.title, err)
			}
		}
		log.Printf("Created thought %d/%d: %s (ID: %s, versions: %d)", i+1, len(seeds), s.title, t.ID, 1+len(s.versions))
	}

	log.Println("Seeding complete")
}

// clearUserData deletes a user's thoughts; versions and collaborators cascade.
func clearUserData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, userID string) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Thoughts+" WHERE owner_id = $1", userID)
	return err
}

type seedThought struct {
	title    string
	core     json.RawMessage
	versions []json.RawMessage
}

func getSeedThoughts() []seedThought {
	return []seedThought{
		{
			title: "Groceries",
			core: json.RawMessage(`[
				{"type":"heading","level":1,"children":[{"text":"Groceries"}]},
				{"type":"bullet-list","children":[
					{"type":"list-item","children":[{"text":"Oat milk"}]},
					{"type":"list-item","children":[{"text":"Sourdough"}]},
					{"type":"list-item","children":[{"text":"Coffee beans","bold":true}]}
				]}
			]`),
		},
		{
			title: "Talk outline",
			core: json.RawMessage(`[
				{"type":"heading","level":1,"children":[{"text":"Why small tools win"}]},
				{"type":"numbered-list","children":[
					{"type":"list-item","children":[{"text":"Start with one user"}]},
					{"type":"list-item","children":[{"text":"Ship the boring version"}]},
					{"type":"list-item","children":[{"text":"Measure, then "},{"text":"cut","italic":true}]}
				]}
			]`),
			versions: []json.RawMessage{
				json.RawMessage(`[
					{"type":"heading","level":1,"children":[{"text":"Why small tools win"}]},
					{"type":"paragraph","children":[{"text":"Open with the story about the "},{"text":"spreadsheet","highlight":true},{"text":" that ran a company."}]}
				]`),
				json.RawMessage(`[
					{"type":"heading","level":2,"children":[{"text":"Shorter cut"}]},
					{"type":"paragraph","children":[{"text":"Three points, ten minutes, no slides."}]}
				]`),
			},
		},
		{
			title: "Snippet",
			core: json.RawMessage(`[
				{"type":"paragraph","children":[{"text":"Retry with backoff:"}]},
				{"type":"code","children":[{"text":"for i := 0; i < 5; i++ { time.Sleep(1 << i * time.Second) }"}]}
			]`),
		},
		{
			title: "Half-formed idea",
			core: json.RawMessage(`[
				{"type":"paragraph","children":[{"text":"What if notes could "},{"text":"argue back","underline":true},{"text":"?"}]},
				{"type":"paragraph","children":[{"text":"Old plan","linethrough":true}]}
			]`),
		},
	}
}
