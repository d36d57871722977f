package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/config"
	"github.com/oksasatya/bar-occupancy/internal/application"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-event-worker", cfg.Env)

	if !cfg.EventsEnabled {
		logger.Info("EVENTS_ENABLED=false; event worker disabled")
		return
	}
	if !cfg.SearchEnabled {
		logger.Warn("SEARCH_ENABLED=false; events will be acknowledged without indexing")
	}

	var search *application.SearchService
	if cfg.SearchEnabled {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("elasticsearch client: %v", err)
		}
		search = application.NewSearchService(es, cfg.ESBarsIndex, nil, logger)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch across workers
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQEventsQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			handle(logger, search, msg)
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQEventsQueue).Info("event worker listening")
	<-stop
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func handle(logger *logrus.Logger, search *application.SearchService, msg amqp.Delivery) {
	var ev application.CountUpdated
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		helpers.LogError(logger, "bad message", err, nil)
		_ = msg.Nack(false, false)
		return
	}
	entry := logger.WithFields(logrus.Fields{
		"bar_id":   ev.BarID,
		"previous": ev.PreviousCount,
		"count":    ev.CurrentCount,
		"user_id":  ev.UserID,
	})

	if search != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := search.ApplyCountUpdate(ctx, ev); err != nil {
			entry.WithError(err).Warn("reindex failed, requeueing")
			_ = msg.Nack(false, true)
			return
		}
	}
	if ev.Capacity > 0 && ev.CurrentCount > ev.Capacity {
		entry.WithField("capacity", ev.Capacity).Warn("bar over capacity")
	}
	entry.Info("count update processed")
	_ = msg.Ack(false)
}
