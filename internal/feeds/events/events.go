// Package events announces committed feed items to downstream consumers.
// Publication happens after commit and is best-effort: a failed publish is
// reported to the caller for logging but never undoes the item.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"feedlog/internal/feeds/models"
)

const TypeItemPublished = "item.published"

// ItemPublished is the event body. The record key is the feed name, so one
// feed's events stay ordered within a partition.
type ItemPublished struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	Issuer        string    `json:"issuer"`
	Subject       string    `json:"subject"`
	Seqno         uint64    `json:"seqno"`
	ItemReference string    `json:"item_reference"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func NewItemPublished(item *models.StoredItem) ItemPublished {
	return ItemPublished{
		EventID:       uuid.NewString(),
		Type:          TypeItemPublished,
		Issuer:        item.Issuer,
		Subject:       item.Subject,
		Seqno:         item.Seqno,
		ItemReference: item.Reference(),
		SubmittedAt:   item.SubmittedAt,
	}
}

// KafkaPublisher produces ItemPublished records synchronously.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

func (p *KafkaPublisher) PublishItem(ctx context.Context, item *models.StoredItem) error {
	payload, err := json.Marshal(NewItemPublished(item))
	if err != nil {
		return fmt.Errorf("encode item event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(item.Feed()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(TypeItemPublished)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce item event: %w", err)
	}
	return nil
}

// LogPublisher writes events to the structured log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishItem(ctx context.Context, item *models.StoredItem) error {
	ev := NewItemPublished(item)
	p.logger.InfoContext(ctx, TypeItemPublished,
		"log_type", "audit",
		"event_id", ev.EventID,
		"issuer", ev.Issuer,
		"subject", ev.Subject,
		"seqno", ev.Seqno,
		"item_reference", ev.ItemReference,
	)
	return nil
}
