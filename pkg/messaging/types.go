package messaging

import (
	"context"

	"github.com/matst80/slask-facets/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

type ChangeTopic string

const (
	RowsUpserted  ChangeTopic = "rows_upserted"
	RowsDeleted   ChangeTopic = "rows_deleted"
	FacetsChanged ChangeTopic = "facets_changed"
)

type RabbitConfig struct {
	Prefix string
	Url    string
	VHost  string
}

// RowSink receives the row changes read from the queues.
type RowSink interface {
	UpsertRows(rows ...types.Row)
	DeleteRows(ids ...uint) int
	Epoch() uint64
	RowCount() int
}

// FacetsChange tells consumers that facets computed before Epoch are stale.
type FacetsChange struct {
	Epoch    uint64 `json:"epoch"`
	Rows     int    `json:"rows"`
	Upserted int    `json:"upserted"`
	Deleted  int    `json:"deleted"`
}

// Publisher is the part of *amqp.Channel used to send changes.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}
