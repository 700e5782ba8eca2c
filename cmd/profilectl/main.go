// profilectl - операторская утилита для профилей поездок в Postgres
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kitbuilder587/travel-insurance-bot/internal/config"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(openPostgres).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openPostgres(ctx context.Context) (*store, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return &store{
		repo:    postgres.NewProfileRepo(db),
		migrate: db.Migrate,
		close:   db.Close,
	}, nil
}
