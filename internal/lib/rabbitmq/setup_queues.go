package rabbitmq

// Ключи маршрутизации событий сервиса.
const (
	RoutingPayment              = "payment"
	RoutingSubscriptionExpiring = "subscription.expiring"
	RoutingSubscriptionExpired  = "subscription.expired"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые читает сервис уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePayment, RoutingKey: RoutingPayment},
		{QueueName: QueueSubscriptionExpiring, RoutingKey: RoutingSubscriptionExpiring},
		{QueueName: QueueSubscriptionExpired, RoutingKey: RoutingSubscriptionExpired},
	}
}

// Очереди сервиса уведомлений.
const (
	QueuePayment              = "notification.payment"
	QueueSubscriptionExpiring = "notification.subscription.expiring"
	QueueSubscriptionExpired  = "notification.subscription.expired"
)
