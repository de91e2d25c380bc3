package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/tapcard-io/scheduler/internal/config"
	dbpkg "github.com/tapcard-io/scheduler/internal/db"
	infraRepo "github.com/tapcard-io/scheduler/internal/infra/repository"
	"github.com/tapcard-io/scheduler/internal/routes"
	ucScheduling "github.com/tapcard-io/scheduler/internal/usecase/scheduling"
)

func main() {

	cfg := config.Load()
	db := dbpkg.NewDB(cfg)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.RegisterRoutes(r, db, rdb, cfg)

	// reschedule proposals nobody acted on expire after 48h; the sweep
	// catches the ones supersede-on-create never touches
	expireUC := ucScheduling.NewExpireStaleReschedules(
		infraRepo.NewSchedulingGormRepository(db),
	)
	c := cron.New()
	if _, err := c.AddFunc("@every 10m", func() {
		n, err := expireUC.Execute(context.Background())
		if err != nil {
			log.Println("reschedule expiry sweep error:", err)
			return
		}
		if n > 0 {
			log.Printf("expired %d stale reschedule requests", n)
		}
	}); err != nil {
		log.Fatalf("failed to schedule expiry sweep: %v", err)
	}
	c.Start()

	log.Printf("Server running on %s", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
