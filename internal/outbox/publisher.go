// Package outbox публикует события аудита из таблицы events в Kafka.
package outbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// MessageWriter: часть kafka.Writer, нужная паблишеру.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

var _ MessageWriter = (*kafka.Writer)(nil)

type Config struct {
	Brokers   []string
	Topic     string
	PollEvery time.Duration
	BatchSize int
}

type Publisher struct {
	db     *gorm.DB
	events repository.EventRepository
	writer MessageWriter
	log    zerolog.Logger

	pollEvery time.Duration
	batchSize int
	now       func() time.Time
}

// NewKafkaWriter собирает writer. Ключ сообщения равен ID агрегата, балансировка по хэшу.
func NewKafkaWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func NewPublisher(db *gorm.DB, events repository.EventRepository, writer MessageWriter, cfg Config, log zerolog.Logger) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		db:        db,
		events:    events,
		writer:    writer,
		log:       log.With().Str("component", "outbox").Logger(),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
}

// Run публикует пачки до отмены ctx.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx)
			if err != nil {
				p.log.Error().Err(err).Msg("outbox publish failed")
				continue
			}
			if n > 0 {
				p.log.Debug().Int("count", n).Msg("outbox events published")
			}
		}
	}
}

// PublishBatch отправляет одну пачку неопубликованных событий и помечает их.
// Если Kafka не приняла сообщения, транзакция откатывается и пачка уйдёт повторно.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	var published int
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := p.events.WithTx(tx)

		batch, err := events.ListUnpublished(ctx, p.batchSize)
		if err != nil {
			return fmt.Errorf("fetch unpublished events: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(batch))
		ids := make([]uint64, 0, len(batch))
		for _, e := range batch {
			msgs = append(msgs, toMessage(ctx, e))
			ids = append(ids, e.ID)
		}

		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write %d messages: %w", len(msgs), err)
		}
		if err := events.MarkPublished(ctx, ids, p.now().UTC()); err != nil {
			return fmt.Errorf("mark events published: %w", err)
		}
		published = len(batch)
		return nil
	})
	return published, err
}

func toMessage(ctx context.Context, e model.Event) kafka.Message {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(strconv.FormatUint(e.ID, 10))},
		{Key: "event_type", Value: []byte(e.EventType)},
	}
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return kafka.Message{
		Key:     []byte(e.AggregateID),
		Value:   []byte(e.Payload),
		Headers: carrier.headers,
		Time:    e.CreatedAt,
	}
}

// headerCarrier — propagation.TextMapCarrier поверх заголовков Kafka.
type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range c.headers {
		if h.Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
