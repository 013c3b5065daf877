package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/appdotbuilder/party-planner-bot/internal/config"
	"github.com/appdotbuilder/party-planner-bot/internal/db"
	"github.com/appdotbuilder/party-planner-bot/internal/logger"
	"github.com/appdotbuilder/party-planner-bot/internal/planner"
	"github.com/appdotbuilder/party-planner-bot/internal/store/rabbitmq"
	"github.com/appdotbuilder/party-planner-bot/internal/store/redisstore"
)

const staleJobAge = 10 * time.Minute

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()
	log := logger.New()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	repo := planner.NewRepo(gdb)
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	svc := planner.NewService(repo, rds, log, time.Duration(cfg.SnapshotCacheTTL)*time.Second)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Jobs left in running by a dead worker get failed by the reaper.
	reaper := cron.New()
	_, err = reaper.AddFunc("@every 5m", func() {
		n, err := repo.FailStaleTurnJobs(context.Background(), staleJobAge)
		if err != nil {
			log.WithError(err).Warn("stale job sweep failed")
			return
		}
		if n > 0 {
			log.WithField("count", n).Info("failed stale turn jobs")
		}
	})
	if err != nil {
		log.Fatalf("reaper: %v", err)
	}
	reaper.Start()
	defer reaper.Stop()

	log.WithFields(logrus.Fields{
		"queue":       cfg.RabbitQueue,
		"concurrency": concurrency,
	}).Info("worker started")

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.TurnJobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.WithField("worker", workerID).WithError(err).Warn("bad message")
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := svc.RunTurnJob(ctx, m.JobID); err != nil {
					log.WithFields(logrus.Fields{
						"worker": workerID,
						"job":    m.JobID,
						"cost":   time.Since(start).String(),
					}).WithError(err).Warn("turn job failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.WithFields(logrus.Fields{
						"worker": workerID,
						"job":    m.JobID,
					}).WithError(err).Warn("ack failed")
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
