package rabbitmq

import "github.com/streadway/amqp"

// ChannelPublisher публикует сообщения в обменник через открытый канал.
// Реализует интерфейсы Publisher сервисов, публикующих уведомления.
type ChannelPublisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewChannelPublisher создает новый ChannelPublisher.
func NewChannelPublisher(ch *amqp.Channel, exchange string) *ChannelPublisher {
	return &ChannelPublisher{ch: ch, exchange: exchange}
}

// Publish сериализует сообщение в JSON и публикует его с заданным маршрутным ключом.
func (p *ChannelPublisher) Publish(routingKey string, message any) error {
	return PublishMessage(p.ch, p.exchange, routingKey, message)
}
