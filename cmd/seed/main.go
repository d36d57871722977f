package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/bar-occupancy/config"
	pginfra "github.com/oksasatya/bar-occupancy/internal/infrastructure/postgres"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/seed"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptionsFrom(cfg))
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	res, err := seed.Apply(ctx, pginfra.NewStore(pool), helpers.HashPassword)
	if err != nil {
		log.Fatalf("failed to seed: %v", err)
	}
	fmt.Printf("seeded bars=%d users=%d\n", res.BarsCreated, res.UsersCreated)
	for _, m := range seed.Managers {
		fmt.Printf("manager: username=%s password=%s bar=%d\n", m.Username, m.Password, m.BarIndex)
	}
}
