package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
	"github.com/merchkit/catalog/pkg/retry"
)

const (
	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond
)

var _ port.SearchIndexer = (*Indexer)(nil)

// productDocument is the index representation of one product with all
// of its variants flattened in.
type productDocument struct {
	ProductID       string   `json:"product_id"`
	Name            string   `json:"name"`
	VariantNames    []string `json:"variant_names"`
	SKUs            []string `json:"skus"`
	AttributeValues []string `json:"attribute_values"`
	IndexedAt       int64    `json:"indexed_at"`
}

// An Indexer keeps the product search index in sync with storage.
// Documents are keyed by product id, so a refresh replaces the whole
// document for that product.
type Indexer struct {
	cl    *elasticsearch.Client
	index string
}

func New(addresses []string, index string) (*Indexer, error) {
	const op = "search.New"

	cl, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Indexer{cl: cl, index: index}, nil
}

func (ix *Indexer) Ping(ctx context.Context) error {
	const op = "Indexer.Ping"

	res, err := ix.cl.Ping(
		ix.cl.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer ix.drain(res)

	if res.IsError() {
		return fmt.Errorf("%s: %s", op, res.Status())
	}
	return nil
}

func (ix *Indexer) RefreshProduct(
	ctx context.Context, doc domain.ProductSearchDocument,
) error {
	const op = "Indexer.RefreshProduct"
	log := slog.With("op", op, "productID", doc.ProductID)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(ix.toDocument(doc))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	retryConfig := retry.RetryConfig{
		MaxAttempts: retryAttempts,
		Backoff:     retry.LineareBackoff(retryDelay),
	}
	err = retry.Do(ctx, retryConfig, func() error {
		return ix.indexDocument(ctx, doc.ProductID, body)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("search document refreshed")
	return nil
}

func (ix *Indexer) indexDocument(
	ctx context.Context, docID string, body []byte,
) error {
	const op = "Indexer.indexDocument"

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, ix.cl)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer ix.drain(res)

	if res.IsError() {
		return fmt.Errorf("%s: %s", op, res.Status())
	}
	return nil
}

func (ix *Indexer) drain(res *esapi.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}

func (*Indexer) toDocument(
	doc domain.ProductSearchDocument,
) productDocument {
	return productDocument{
		ProductID:       doc.ProductID,
		Name:            doc.Name,
		VariantNames:    doc.VariantNames,
		SKUs:            doc.SKUs,
		AttributeValues: doc.AttributeValues,
		IndexedAt:       time.Now().UnixMilli(),
	}
}
