package kafka

import (
	"context"
	"time"

	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
	"github.com/merchkit/catalog/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.EventDispatcher = (*VariantEventProducer)(nil)

// A VariantEventProducer publishes variant lifecycle events.
// Records are keyed by variant id.
type VariantEventProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewVariantEventProducer(
	opts ...ProducerOpt,
) (VariantEventProducer, error) {
	const op = "NewVariantEventProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return VariantEventProducer{}, opErr(err, op)
		}
	}

	opPrefix := "VariantEventProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return VariantEventProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p VariantEventProducer) Close() {
	p.producer.close()
}

func (p VariantEventProducer) VariantCreated(
	ctx context.Context, v domain.ProductVariant,
) error {
	const op = "VariantCreated"
	return p.produceEvent(ctx, schema.EventVariantCreated, v, op)
}

func (p VariantEventProducer) VariantUpdated(
	ctx context.Context, v domain.ProductVariant,
) error {
	const op = "VariantUpdated"
	return p.produceEvent(ctx, schema.EventVariantUpdated, v, op)
}

func (p VariantEventProducer) produceEvent(
	ctx context.Context, event string, v domain.ProductVariant, op string,
) error {
	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(event, v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, &r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p VariantEventProducer) createRecord(
	event string, v domain.ProductVariant,
) (kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(event, v)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return kgo.Record{}, opErr(err, p.opPrefix, op)
	}
	return kgo.Record{Key: []byte(s.VariantID), Value: b}, nil
}

func (VariantEventProducer) toSchema(
	event string, v domain.ProductVariant,
) (s schema.VariantEventV1) {
	s.Event = event
	s.VariantID = v.ID
	s.ProductID = v.ProductID
	s.SKU = v.SKU
	s.Name = v.Name
	s.OccurredAt = time.Now().UnixMilli()
	return
}
