package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"kheelo-quiz-service/internal/domain"
)

// DefaultQueue receives one message per committed allocation.
const DefaultQueue = "quiz.winners"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// WinnerNotifier publishes allocation results to a durable queue so the
// notification side can tell winners about their points.
type WinnerNotifier struct {
	conn    *amqp.Connection
	channel publisher
	queue   string
	now     func() time.Time
}

// Dial connects to the broker and declares the queue.
func Dial(url, queue string) (*WinnerNotifier, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &WinnerNotifier{conn: conn, channel: ch, queue: queue, now: time.Now}, nil
}

func (n *WinnerNotifier) Close() error {
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

type winnersMessage struct {
	QuizID                 string          `json:"quizId"`
	PointsPerWinner        int             `json:"pointsPerWinner"`
	TotalPointsDistributed int             `json:"totalPointsDistributed"`
	Winners                []domain.Winner `json:"winners"`
}

func (n *WinnerNotifier) NotifyWinners(ctx context.Context, result domain.AllocationResult) error {
	body, err := json.Marshal(winnersMessage{
		QuizID:                 result.QuizID,
		PointsPerWinner:        result.Allocation.PointsPerWinner,
		TotalPointsDistributed: result.Allocation.TotalPointsDistributed,
		Winners:                result.Winners,
	})
	if err != nil {
		return fmt.Errorf("encode winners: %w", err)
	}

	err = n.channel.PublishWithContext(
		ctx,
		"",      // default exchange
		n.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    result.QuizID,
			Timestamp:    n.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish winners for quiz %s: %w", result.QuizID, err)
	}
	return nil
}
