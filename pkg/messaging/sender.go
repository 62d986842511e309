package messaging

import (
	"context"
	"fmt"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	amqp "github.com/rabbitmq/amqp091-go"
)

func DefineTopic(ch *amqp.Channel, prefix string, topic ChangeTopic) error {
	name := getName(prefix, topic)
	return ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-delete
		false,   // internal
		false,   // noWait
		nil,     // arguments
	)
}

func getName(prefix string, topic ChangeTopic) string {
	if prefix == "" {
		return string(topic)
	}
	return fmt.Sprintf("%s_%s", prefix, topic)
}

// SendChange publishes data as json on the exchange of topic, routed with the
// exchange name.
func SendChange[V any](ctx context.Context, p Publisher, prefix string, topic ChangeTopic, data V) error {
	body, err := jsoncompat.Marshal(data)
	if err != nil {
		return err
	}
	name := getName(prefix, topic)
	return p.PublishWithContext(ctx, name, name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// ChangeNotifier announces applied row changes.
type ChangeNotifier interface {
	NotifyFacetsChanged(ctx context.Context, change FacetsChange) error
}

// TopicNotifier publishes FacetsChange messages on the facets_changed topic.
type TopicNotifier struct {
	Publisher Publisher
	Prefix    string
}

func (n *TopicNotifier) NotifyFacetsChanged(ctx context.Context, change FacetsChange) error {
	return SendChange(ctx, n.Publisher, n.Prefix, FacetsChanged, change)
}
