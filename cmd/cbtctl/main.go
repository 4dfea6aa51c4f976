// Команда cbtctl — административные операции: миграции, выпуск токенов, генерация кодов.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/config"
	pgRepo "github.com/yourusername/cbt-api/internal/repository/postgres"
	"github.com/yourusername/cbt-api/internal/service"
	"github.com/yourusername/cbt-api/pkg/auth"
	"github.com/yourusername/cbt-api/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось загрузить .env: %v", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cbtctl",
		Short:        "Administrative tool for the CBT API",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", defaultConfigPath(), "Path to config file")

	root.AddCommand(migrateCmd(), tokenCmd(), codesCmd())
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Storage.Backend != config.StorageBackendPostgres {
		return nil, fmt.Errorf("command requires storage.backend=%s, got %q", config.StorageBackendPostgres, cfg.Storage.Backend)
	}
	return database.NewPostgresDB(cfg.Database.PostgresConnectionString(), false)
}

// --- migrate ---

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			return database.MigrateDB(db, cfg.Database.MigrationsPath)
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set schema version without running migrations (clears dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			return database.ForceMigrationVersion(db, cfg.Database.MigrationsPath, version)
		},
	}

	cmd.AddCommand(up, force)
	return cmd
}

// --- token ---

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetUint("user-id")
			role, _ := cmd.Flags().GetString("role")
			if !auth.IsValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}

			jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
			if err != nil {
				return err
			}
			token, err := jwtService.GenerateToken(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := issue.Flags()
	f.Uint("user-id", 0, "User ID to embed in the token (required)")
	f.String("role", auth.RoleAdmin, "Role: admin, teacher or student")
	_ = issue.MarkFlagRequired("user-id")

	cmd.AddCommand(issue)
	return cmd
}

// --- codes ---

func codesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage test codes",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of inactive test codes",
		RunE:  runGenerateCodes,
	}
	f := generate.Flags()
	f.String("class", "", "Class, e.g. JSS1 (required)")
	f.String("subject", "", "Subject (required)")
	f.String("session", "", "Academic session, e.g. 2024/2025 (required)")
	f.String("term", "", "Term, e.g. First (required)")
	f.String("test-type", "Test", "Test or Exam")
	f.Int("num-questions", 0, "Questions per attempt (required)")
	f.Int("score-per-question", 1, "Points per correct answer")
	f.Int("duration", 0, "Duration in minutes (required)")
	f.IntP("count", "n", 1, "Number of codes to generate")
	f.Uint("created-by", 0, "ID of the administrator recorded as creator (required)")
	for _, name := range []string{"class", "subject", "session", "term", "num-questions", "duration", "created-by"} {
		_ = generate.MarkFlagRequired(name)
	}

	cmd.AddCommand(generate)
	return cmd
}

func runGenerateCodes(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	req := service.GenerateRequest{}
	req.Class, _ = f.GetString("class")
	req.Subject, _ = f.GetString("subject")
	req.Session, _ = f.GetString("session")
	req.Term, _ = f.GetString("term")
	req.TestType, _ = f.GetString("test-type")
	req.NumQuestions, _ = f.GetInt("num-questions")
	req.ScorePerQuestion, _ = f.GetInt("score-per-question")
	req.Duration, _ = f.GetInt("duration")
	req.Count, _ = f.GetInt("count")
	req.CreatedBy, _ = f.GetUint("created-by")

	activity := service.NewActivityLogger(pgRepo.NewActivityLogRepo(db))
	generator := service.NewCodeGenerator(
		pgRepo.NewQuestionRepo(db),
		pgRepo.NewTxManager(db),
		activity,
		service.CodeGeneratorConfig{MaxBatchSize: cfg.CBT.MaxBatchSize, MaxAttempts: cfg.CBT.CodeAttempts},
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	codes, err := generator.GenerateBatch(ctx, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, code := range codes {
		fmt.Fprintf(out, "%s\t%d\n", code.Code, code.ID)
	}
	return nil
}
