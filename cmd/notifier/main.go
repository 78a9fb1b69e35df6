package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/fluxaudio/fluxaudio/internal/config"
	"github.com/fluxaudio/fluxaudio/internal/logging"
	"github.com/fluxaudio/fluxaudio/internal/notify"
)

func consumerConcurrency() int {
	v := os.Getenv("NOTIFIER_CONCURRENCY")
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
	log := logging.New("notifier")

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.WithError(err).Fatal("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Fatal("rabbit channel")
	}
	defer ch.Close()

	// Queue topology must match the publisher: main queue dead-letters
	// into the DLQ on reject.
	dlq := cfg.RabbitQueue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		log.WithError(err).Fatal("dlq declare")
	}
	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}); err != nil {
		log.WithError(err).Fatal("queue declare")
	}

	concurrency := consumerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.WithError(err).Fatal("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.WithError(err).Fatal("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{"queue": cfg.RabbitQueue, "concurrency": concurrency}).
		Info("notifier started")

	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				var n notify.Notification
				if err := json.Unmarshal(d.Body, &n); err != nil || n.UserID == "" {
					log.WithField("worker", workerID).WithError(err).Warn("bad message")
					_ = d.Nack(false, false)
					continue
				}

				// Real delivery (email, push) would happen here; the demo
				// records the notification and moves on.
				log.WithFields(logrus.Fields{
					"worker":  workerID,
					"user_id": n.UserID,
					"kind":    n.Kind,
				}).Infof("notification: %s", n.Message)

				if err := d.Ack(false); err != nil {
					log.WithField("worker", workerID).WithError(err).Warn("ack failed")
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("notifier shutting down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				// Broker closed the channel; wait for the shutdown signal.
				log.Warn("delivery channel closed")
				msgs = nil
				continue
			}
			deliveries <- d
		}
	}
}
