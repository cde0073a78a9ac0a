package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/recipelens/backend/config"
	"github.com/pageza/recipelens/backend/internal/database"
	"github.com/pageza/recipelens/backend/internal/logging"
	"github.com/pageza/recipelens/backend/internal/service"
	"github.com/pageza/recipelens/backend/internal/types"
)

const batchSize = 5 // Number of recipes created concurrently

//go:embed recipes.json
var defaultRecipes []byte

func main() {
	file := flag.String("file", "", "JSON file with recipes to seed (defaults to the built-in set)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	recipes, err := loadRecipes(*file)
	if err != nil {
		logger.Fatal("failed to read recipes", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	svc := service.NewRecipeService(db, nil, nil, logger)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.DBDriver == "sqlite" {
		g.SetLimit(1)
	} else {
		g.SetLimit(batchSize)
	}
	for i := range recipes {
		req := &recipes[i]
		g.Go(func() error {
			if _, err := svc.Create(gctx, req); err != nil {
				return fmt.Errorf("failed to seed %q: %w", req.Title, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}

	logger.Info("seeded recipes", zap.Int("count", len(recipes)))
}

func loadRecipes(path string) ([]types.CreateRecipeRequest, error) {
	data := defaultRecipes
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}

	var recipes []types.CreateRecipeRequest
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("failed to parse recipes: %w", err)
	}
	return recipes, nil
}
