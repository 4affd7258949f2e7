package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"iptv-client-portal/internal/config"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
	pg "iptv-client-portal/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	optionRepo := pg.NewRechargeOptionRepo(pool)

	// If the single-login catalog already exists, do nothing.
	existing, err := optionRepo.ListActiveByPlanType(ctx, repository.NoTX, "ponto_unico")
	if err != nil {
		log.Fatalf("list options: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d recharge options already present. No changes.\n", len(existing))
		return
	}

	type row struct {
		Plan   string
		Period string
		Days   int
		Price  float64
		Name   string
	}
	seed := []row{
		{"ponto_unico", "mensal", 30, 30.00, "Mensal"},
		{"ponto_unico", "trimestral", 90, 80.00, "Trimestral"},
		{"ponto_unico", "semestral", 180, 150.00, "Semestral"},
		{"ponto_unico", "anual", 365, 280.00, "Anual"},
		{"ponto_duplo", "mensal", 30, 50.00, "Mensal"},
		{"ponto_duplo", "trimestral", 90, 135.00, "Trimestral"},
		{"ponto_duplo", "semestral", 180, 255.00, "Semestral"},
		{"ponto_triplo", "mensal", 30, 65.00, "Mensal"},
		{"ponto_triplo", "trimestral", 90, 175.00, "Trimestral"},
	}

	now := time.Now()
	for _, s := range seed {
		opt := &model.RechargeOption{
			ID:           uuid.NewString(),
			PlanType:     s.Plan,
			Period:       s.Period,
			DurationDays: s.Days,
			Price:        s.Price,
			DisplayName:  s.Name,
			Active:       true,
			CreatedAt:    now,
		}
		if err := optionRepo.Save(ctx, repository.NoTX, opt); err != nil {
			log.Fatalf("seed option %s/%s: %v", s.Plan, s.Period, err)
		}
		fmt.Printf("  + %s %s: R$%.2f (%d dias)\n", s.Plan, s.Name, s.Price, s.Days)
	}
	fmt.Println("done.")
}
