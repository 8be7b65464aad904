package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/config"
	"github.com/aman-churiwal/exchange-governor/internal/governor"
	"github.com/aman-churiwal/exchange-governor/internal/recorder"
	"github.com/aman-churiwal/exchange-governor/internal/repository"
	"github.com/aman-churiwal/exchange-governor/internal/server"
	"github.com/aman-churiwal/exchange-governor/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redis, err := storage.NewRedis(
		cfg.Redis.GetRedisAddr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	log.Println("Connected to redis successfully")

	postgres, err := storage.NewPostgres(cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Connected to postgres successfully")

	// Ticket resolutions are written to the audit log in batches off the
	// governor's hot path
	ticketLogRepo := repository.NewTicketLogRepository(postgres)
	rec := recorder.New(ticketLogRepo, 0)
	rec.Start()

	gov := governor.New(governor.Config{
		WeightLimit:    cfg.Governor.WeightLimit,
		WeightWindow:   cfg.Governor.WeightWindow(),
		OrderLimit:     cfg.Governor.OrderLimit,
		OrderWindow:    cfg.Governor.OrderWindow(),
		MaxQueueDepth:  cfg.Governor.MaxQueueDepth,
		LowTierBacklog: cfg.Governor.LowTierBacklog,
	}, rec)

	log.Printf("Governor started: weight %d/%s, orders %d/%s, queue depth %d",
		cfg.Governor.WeightLimit, cfg.Governor.WeightWindow(),
		cfg.Governor.OrderLimit, cfg.Governor.OrderWindow(),
		cfg.Governor.MaxQueueDepth,
	)

	// Create server
	srv := server.New(cfg, redis, postgres, gov)

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// Stop the governor after the HTTP surface so late submissions resolve as
	// shutdown, then let the recorder flush what remains
	gov.Stop()
	rec.Stop()

	log.Println("Governor exited")
}
