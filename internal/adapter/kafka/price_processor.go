package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/merchkit/catalog/internal/core/port"
	"github.com/merchkit/catalog/pkg/schema"
)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
		return
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A priceRecalcCodec used for serde [schema.PriceRecalcV1]
type priceRecalcCodec struct {
	serde Serde
}

func newPriceRecalcCodec(s Serde) priceRecalcCodec {
	return priceRecalcCodec{s}
}

func (c priceRecalcCodec) Encode(v any) ([]byte, error) {
	const op = "priceRecalcCodec.Encode"
	if _, ok := v.(schema.PriceRecalcV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c priceRecalcCodec) Decode(data []byte) (any, error) {
	const op = "priceRecalcCodec.Decode"
	var s schema.PriceRecalcV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, err
}

// A PriceRecalcProcessor consumes recalculation requests from the
// stream topic and applies them through the price updater.
type PriceRecalcProcessor struct {
	opPrefix string
	proc     processor
	updater  port.DiscountedPriceUpdater
}

func NewPriceRecalcProc(
	seedBrokers []string,
	inputStream string,
	group string,
	priceRecalcSerde Serde,
	updater port.DiscountedPriceUpdater,
) (*PriceRecalcProcessor, error) {
	const op = "NewPriceRecalcProc"

	p := PriceRecalcProcessor{
		opPrefix: "PriceRecalcProcessor",
		updater:  updater,
	}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			newPriceRecalcCodec(priceRecalcSerde),
			p.processFn,
		),
	)

	gp, err := goka.NewProcessor(seedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{
		opPrefix: p.opPrefix,
		gp:       gp,
	}

	return &p, nil
}

func (p *PriceRecalcProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *PriceRecalcProcessor) Close() {
	p.proc.close()
}

func (p *PriceRecalcProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	event, _ := msg.(schema.PriceRecalcV1)
	log := slog.With(
		"op", makeOp(p.opPrefix, op), "productID", event.ProductID,
	)

	err := p.updater.RecalculateDiscountedPrice(
		ctx.Context(), event.ProductID,
	)
	if err != nil {
		log.Error("recalculation failed", "err", err)
		return
	}
	log.Info("discounted price recalculated")
}
