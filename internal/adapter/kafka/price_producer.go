package kafka

import (
	"context"
	"time"

	"github.com/merchkit/catalog/internal/core/port"
	"github.com/merchkit/catalog/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.PriceRecalcEnqueuer = (*PriceRecalcProducer)(nil)

// A PriceRecalcProducer enqueues discounted-price recalculation
// requests. Records are keyed by product id so requests for one
// product land on one partition.
type PriceRecalcProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewPriceRecalcProducer(
	opts ...ProducerOpt,
) (PriceRecalcProducer, error) {
	const op = "NewPriceRecalcProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return PriceRecalcProducer{}, opErr(err, op)
		}
	}

	opPrefix := "PriceRecalcProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return PriceRecalcProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p PriceRecalcProducer) Close() {
	p.producer.close()
}

func (p PriceRecalcProducer) EnqueuePriceRecalc(
	ctx context.Context, productID string,
) error {
	const op = "EnqueuePriceRecalc"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(productID)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, &r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p PriceRecalcProducer) createRecord(
	productID string,
) (kgo.Record, error) {
	const op = "createRecord"

	s := schema.PriceRecalcV1{
		ProductID:   productID,
		RequestedAt: time.Now().UnixMilli(),
	}
	b, err := p.encoder.Encode(s)
	if err != nil {
		return kgo.Record{}, opErr(err, p.opPrefix, op)
	}
	return kgo.Record{Key: []byte(productID), Value: b}, nil
}
