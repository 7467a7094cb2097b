package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/database"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// NotificationPublisher definition out-of-band notification transport.
// Push requests go to the notification worker over Kafka, email-class
// requests to the mailer over RabbitMQ.
type NotificationPublisher interface {
	PublishPush(ctx context.Context, req domain.NotificationRequest) error
	PublishEmail(ctx context.Context, req domain.NotificationRequest) error
}

type notificationPublisher struct {
	pushWriter *kafka.Writer
	rabbit     database.RabbitRepo
	emailQueue string
}

// NewNotificationPublisher create a NotificationPublisher
func NewNotificationPublisher(pushWriter *kafka.Writer, rabbit database.RabbitRepo, emailQueue string) NotificationPublisher {
	return &notificationPublisher{
		pushWriter: pushWriter,
		rabbit:     rabbit,
		emailQueue: emailQueue,
	}
}

func (p *notificationPublisher) PublishPush(ctx context.Context, req domain.NotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}
	return p.pushWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(req.RecipientID),
		Value: body,
	})
}

func (p *notificationPublisher) PublishEmail(_ context.Context, req domain.NotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}
	return p.rabbit.Publish("", p.emailQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
