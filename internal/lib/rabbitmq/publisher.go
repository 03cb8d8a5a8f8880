package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// SecurityEvent сообщение о событии безопасности аккаунта.
type SecurityEvent struct {
	Kind     string    `json:"kind"` // leak_detected, ban, unban, delete
	UID      int       `json:"uid"`
	Nickname string    `json:"nickname,omitempty"`
	Details  string    `json:"details,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher публикует события безопасности в exchange.
// Нулевой Publisher (брокер не сконфигурирован) молча пропускает публикацию.
type Publisher struct {
	ch         *amqp.Channel
	routingKey string
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel, routingKey string) *Publisher {
	return &Publisher{ch: ch, routingKey: routingKey}
}

// Publish сериализует событие и отправляет его в exchange событий безопасности.
func (p *Publisher) Publish(event SecurityEvent) error {
	const op = "rabbitmq.Publish"
	if p == nil || p.ch == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		Exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
