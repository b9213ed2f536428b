package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/queue"
)

const publishTimeout = 5 * time.Second

// Publisher fans notifications out to RabbitMQ.  Each publish dials its own
// connection; failures are logged and never reach the caller.
type Publisher struct {
	url  string
	log  *zap.Logger
	pub  func(ctx context.Context, body []byte) error
	sync bool
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{url: url, log: log}
	p.pub = p.publish
	return p
}

// ForSession returns a Notifier that tags events with the browser session
// and, when known, the user id.
func (p *Publisher) ForSession(sessionID, userID string) Notifier {
	return &sessionPublisher{p: p, sessionID: sessionID, userID: userID}
}

type sessionPublisher struct {
	p         *Publisher
	sessionID string
	userID    string
}

func (s *sessionPublisher) Notify(_ context.Context, n Notification) {
	ev := queue.NotificationEvent{
		SessionID: s.sessionID,
		UserID:    s.userID,
		Level:     string(n.Level),
		Message:   n.Message,
		At:        n.At.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		s.p.log.Warn("rabbitmq: marshal event failed", zap.Error(err))
		return
	}
	send := func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.p.pub(ctx, body); err != nil {
			s.p.log.Warn("rabbitmq: publish failed", zap.Error(err))
		}
	}
	if s.p.sync {
		send()
		return
	}
	go send()
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.NotificationsQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx,
		"",                       // default exchange
		queue.NotificationsQueue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
