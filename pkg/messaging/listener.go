package messaging

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/storage"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfacets_messages_received_total",
		Help: "The total number of row change messages received",
	}, []string{"topic"})
	messagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfacets_messages_failed_total",
		Help: "The total number of row change messages that could not be decoded",
	}, []string{"topic"})
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	if err := DefineTopic(ch, prefix, topic); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, name, name, false, nil)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// ListenToTopic acks messages the filter accepts and rejects the others.
func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, filter func(amqp.Delivery) error) error {
	fc, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func(msgs <-chan amqp.Delivery) {
		for d := range msgs {
			if err := filter(d); err != nil {
				log.Printf("Error processing message on %s: %v", topic, err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}(fc)
	return nil
}

const notifyTimeout = 5 * time.Second

type rowChange struct {
	upserted []types.Row
	deleted  []uint
}

// RowChangeListener turns row change messages into table mutations. Changes
// are queued and applied in batches so that a burst of messages only
// invalidates the facets once per batch.
type RowChangeListener struct {
	sink  RowSink
	queue *common.QueueHandler[rowChange]
	conn  *amqp.Connection
	// Notifier is told about every applied batch, it may be nil. Connect
	// publishes on the facets_changed topic when it is unset.
	Notifier ChangeNotifier
}

func NewRowChangeListener(sink RowSink, batchSize int, interval time.Duration) *RowChangeListener {
	l := &RowChangeListener{sink: sink}
	l.queue = common.NewQueueHandler[rowChange](l.apply, batchSize, interval)
	return l
}

// apply keeps the message order while merging neighbouring upserts.
func (l *RowChangeListener) apply(changes []rowChange) {
	change := FacetsChange{}
	pending := make([]types.Row, 0)
	for _, c := range changes {
		pending = append(pending, c.upserted...)
		if len(c.deleted) > 0 {
			if len(pending) > 0 {
				l.sink.UpsertRows(pending...)
				change.Upserted += len(pending)
				pending = pending[:0]
			}
			change.Deleted += l.sink.DeleteRows(c.deleted...)
		}
	}
	if len(pending) > 0 {
		l.sink.UpsertRows(pending...)
		change.Upserted += len(pending)
	}
	if l.Notifier == nil || change.Upserted+change.Deleted == 0 {
		return
	}
	change.Epoch = l.sink.Epoch()
	change.Rows = l.sink.RowCount()
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := l.Notifier.NotifyFacetsChanged(ctx, change); err != nil {
		log.Printf("failed to send facets change: %v", err)
	}
}

// HandleMessage decodes the body of a message on topic and queues the change.
func (l *RowChangeListener) HandleMessage(topic ChangeTopic, body []byte) error {
	messagesReceived.WithLabelValues(string(topic)).Inc()
	switch topic {
	case RowsUpserted:
		var stored []storage.JsonRow
		if err := jsoncompat.Unmarshal(body, &stored); err != nil {
			messagesFailed.WithLabelValues(string(topic)).Inc()
			return fmt.Errorf("decode upserted rows: %w", err)
		}
		rows, err := storage.ToRows(stored)
		if err != nil {
			messagesFailed.WithLabelValues(string(topic)).Inc()
			return err
		}
		l.queue.Add(rowChange{upserted: rows})
	case RowsDeleted:
		var ids []uint32
		if err := jsoncompat.Unmarshal(body, &ids); err != nil {
			messagesFailed.WithLabelValues(string(topic)).Inc()
			return fmt.Errorf("decode deleted ids: %w", err)
		}
		deleted := make([]uint, len(ids))
		for i, id := range ids {
			deleted[i] = uint(id)
		}
		l.queue.Add(rowChange{deleted: deleted})
	default:
		messagesFailed.WithLabelValues(string(topic)).Inc()
		return fmt.Errorf("unknown topic %s", topic)
	}
	return nil
}

// Connect dials rabbit and starts consuming both row topics.
func (l *RowChangeListener) Connect(cfg RabbitConfig) error {
	conn, err := amqp.DialConfig(cfg.Url, amqp.Config{
		Vhost:      cfg.VHost,
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return err
	}
	l.conn = conn
	if l.Notifier == nil {
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		if err := DefineTopic(ch, cfg.Prefix, FacetsChanged); err != nil {
			return err
		}
		l.Notifier = &TopicNotifier{Publisher: ch, Prefix: cfg.Prefix}
	}
	for _, topic := range []ChangeTopic{RowsUpserted, RowsDeleted} {
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		if err := ListenToTopic(ch, cfg.Prefix, topic, func(d amqp.Delivery) error {
			return l.HandleMessage(topic, d.Body)
		}); err != nil {
			return err
		}
		log.Printf("listening to row changes on %s", getName(cfg.Prefix, topic))
	}
	return nil
}

// Close stops consuming and applies what is still queued.
func (l *RowChangeListener) Close() error {
	var err error
	if l.conn != nil {
		err = l.conn.Close()
	}
	l.queue.Close()
	return err
}
