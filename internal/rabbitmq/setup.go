package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange имя обменника уведомлений.
const Exchange = "notifications"

// Маршрутные ключи уведомлений.
const (
	RoutingKeyPurchase = "purchase"
	RoutingKeyExpiry   = "expiry"
	RoutingKeyReset    = "password-reset"
	RoutingKeyContact  = "contact"
)

// Имена очередей уведомлений.
const (
	QueuePurchase = "notifications.purchase"
	QueueExpiry   = "notifications.expiry"
	QueueReset    = "notifications.password-reset"
	QueueContact  = "notifications.contact"
)

// QueueConfig связывает очередь с маршрутным ключом.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Queues очереди уведомлений, объявляемые при старте.
var Queues = []QueueConfig{
	{QueueName: QueuePurchase, RoutingKey: RoutingKeyPurchase},
	{QueueName: QueueExpiry, RoutingKey: RoutingKeyExpiry},
	{QueueName: QueueReset, RoutingKey: RoutingKeyReset},
	{QueueName: QueueContact, RoutingKey: RoutingKeyContact},
}

// SetupChannel открывает канал, объявляет обменник и очереди уведомлений.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range Queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
