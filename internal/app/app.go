package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/merchkit/catalog/config"
	"github.com/merchkit/catalog/internal/adapter"
	"github.com/merchkit/catalog/internal/adapter/httphandler"
	"github.com/merchkit/catalog/internal/adapter/kafka"
	"github.com/merchkit/catalog/internal/adapter/search"
	"github.com/merchkit/catalog/internal/adapter/storage"
	"github.com/merchkit/catalog/internal/core/port"
	"github.com/merchkit/catalog/internal/core/service"
	"github.com/merchkit/catalog/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

type serdes struct {
	priceRecalc  schema.Serde
	variantEvent schema.Serde
}

type producers struct {
	priceRecalc   kafka.PriceRecalcProducer
	variantEvents kafka.VariantEventProducer
}

type coreService struct {
	variantCreator port.VariantCreator
	variantUpdater port.VariantUpdater
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	wg         sync.WaitGroup
	db         storage.SQLDB
	repository storage.VariantRepository
	indexer    *search.Indexer
	serdes     serdes
	producers  producers
	processor  *kafka.PriceRecalcProcessor
	service    coreService
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initSerdes()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initProcessor()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"
	urls := app.cfg.Broker.SchemaRegistryURLs
	ctx := app.ctx

	srClient, err := sr.NewClient(sr.URLs(urls...))
	if err != nil {
		app.fallDown(op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	priceRecalcSS := app.cfg.Broker.Topics.PriceRecalc + "-value"
	priceRecalcSerde, err := schema.NewSerdePriceRecalcV1(
		ctx,
		schema.SubjectOpt(priceRecalcSS),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	variantEventSS := app.cfg.Broker.Topics.VariantEvents + "-value"
	variantEventSerde, err := schema.NewSerdeVariantEventV1(
		ctx,
		schema.SubjectOpt(variantEventSS),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.priceRecalc = priceRecalcSerde
	app.serdes.variantEvent = variantEventSerde
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"

	ctx := app.ctx
	seedBrokers := app.cfg.Broker.SeedBrokers

	var tlsConfig *tls.Config
	if brokerTLS := app.cfg.Broker.TLS; brokerTLS.Enabled() {
		tlsConfig = adapter.MakeTLSConfig(
			brokerTLS.CACert, brokerTLS.ClientCert, brokerTLS.ClientKey,
		)
	}

	db, err := storage.NewSQLDB(ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.db = db
	app.repository = storage.NewVariantRepository(db)

	priceRecalcProducer, err := kafka.NewPriceRecalcProducer(
		kafka.ProducerClientOpt(
			ctx, seedBrokers, app.cfg.Broker.Topics.PriceRecalc, tlsConfig,
		),
		kafka.ProducerEncoderOpt(app.serdes.priceRecalc),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	variantEventProducer, err := kafka.NewVariantEventProducer(
		kafka.ProducerClientOpt(
			ctx, seedBrokers, app.cfg.Broker.Topics.VariantEvents, tlsConfig,
		),
		kafka.ProducerEncoderOpt(app.serdes.variantEvent),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.producers.priceRecalc = priceRecalcProducer
	app.producers.variantEvents = variantEventProducer

	indexer, err := search.New(app.cfg.Search.Addresses, app.cfg.Search.Index)
	if err != nil {
		app.fallDown(op, err)
	}
	app.indexer = indexer
}

func (app *App) initCoreService() {
	s := service.New(
		app.repository,
		app.producers.priceRecalc,
		app.indexer,
		app.producers.variantEvents,
		service.NewSKUNormalizer(),
		service.NewVariantNameGenerator(),
	)
	app.service.variantCreator = s
	app.service.variantUpdater = s
}

func (app *App) initProcessor() {
	const op = "App.initProcessor"

	proc, err := kafka.NewPriceRecalcProc(
		app.cfg.Broker.SeedBrokers,
		app.cfg.Broker.Topics.PriceRecalc,
		app.cfg.Broker.Consumers.PriceRecalcGroup,
		app.serdes.priceRecalc,
		app.repository,
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.processor = proc
}

func (app *App) initInboundAdapters() {
	addr := app.cfg.HTTPServerAddr
	mux := http.NewServeMux()
	httphandler.RegisterVariants(
		mux, app.service.variantCreator, app.service.variantUpdater,
	)

	handler := httphandler.AllowJSON(mux)
	httpServer := httphandler.NewHTTPServer(addr, handler)
	app.httpServer = httpServer
}

func (app *App) Run(stopFn context.CancelFunc) {
	app.wg.Add(1)
	go app.processor.Run(app.ctx, stopFn, &app.wg)
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.processor.Close()
	app.wg.Wait()
	app.producers.priceRecalc.Close()
	app.producers.variantEvents.Close()
	app.db.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
