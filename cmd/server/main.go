package main

import (
	"github.com/appdotbuilder/party-planner-bot/internal/config"
	"github.com/appdotbuilder/party-planner-bot/internal/db"
	"github.com/appdotbuilder/party-planner-bot/internal/httpapi"
	"github.com/appdotbuilder/party-planner-bot/internal/logger"
	"github.com/appdotbuilder/party-planner-bot/internal/store/rabbitmq"
	"github.com/appdotbuilder/party-planner-bot/internal/store/redisstore"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		// The synchronous turn path has no queue dependency.
		log.WithError(err).Warn("rabbitmq unavailable, async turns disabled")
		pub = nil
	} else {
		defer pub.Close()
	}

	r := httpapi.NewRouter(gdb, cfg, rds, pub, log)

	log.Infof("party planner listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
