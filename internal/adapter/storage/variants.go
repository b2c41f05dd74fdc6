package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/merchkit/catalog/internal/core/domain"
	"github.com/merchkit/catalog/internal/core/port"
)

var _ port.VariantStore = (*VariantRepository)(nil)
var _ port.DiscountedPriceUpdater = (*VariantRepository)(nil)

const (
	skuUniqueConstraint       = "product_variants_sku_key"
	signatureUniqueConstraint = "product_variants_signature_key"
)

type VariantRepository struct {
	sqldb sqldb
}

func NewVariantRepository(sqldb sqldb) VariantRepository {
	return VariantRepository{sqldb}
}

func (r VariantRepository) ProductWithType(
	ctx context.Context, productID string,
) (domain.Product, error) {
	const op = "VariantRepository.ProductWithType"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT p.id, p.name, COALESCE(p.default_variant_id, ''),
		       t.id, t.name, t.has_variants
		FROM products p
		JOIN product_types t ON t.id = p.product_type_id
		WHERE p.id = $1;
	`

	var p domain.Product
	err := r.sqldb.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.DefaultVariantID,
		&p.ProductType.ID, &p.ProductType.Name, &p.ProductType.HasVariants,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	attrs, err := r.variantAttributes(ctx, p.ProductType.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	p.ProductType.VariantAttributes = attrs

	return p, nil
}

func (r VariantRepository) variantAttributes(
	ctx context.Context, productTypeID string,
) ([]domain.Attribute, error) {
	query := `
		SELECT a.id, a.name, a.input_type, a.value_required, a.choices
		FROM product_type_variant_attributes pta
		JOIN attributes a ON a.id = pta.attribute_id
		WHERE pta.product_type_id = $1
		ORDER BY pta.sort_order, a.id;
	`

	rows, err := r.sqldb.QueryContext(ctx, query, productTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attrs []domain.Attribute
	for rows.Next() {
		var (
			a       domain.Attribute
			choices []byte
		)
		err := rows.Scan(&a.ID, &a.Name, &a.InputType, &a.ValueRequired, &choices)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(choices, &a.Choices); err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

func (r VariantRepository) VariantByRef(
	ctx context.Context, ref domain.VariantRef,
) (domain.ProductVariant, error) {
	const op = "VariantRepository.VariantByRef"

	if err := ctx.Err(); err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, product_id, COALESCE(sku, ''), name, track_inventory,
		       weight, price_amount, quantity_limit_per_customer,
		       is_preorder, preorder_global_threshold, preorder_end_date,
		       metadata, private_metadata, created_at, updated_at
		FROM product_variants
	`
	var row *sql.Row
	if ref.ID != "" {
		row = r.sqldb.QueryRowContext(ctx, query+"WHERE id = $1;", ref.ID)
	} else {
		row = r.sqldb.QueryRowContext(ctx, query+"WHERE sku = $1;", ref.SKU)
	}

	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// VariantAssignments rebuilds the variant's persisted attribute
// assignment in stored order. FILE values restore their file url from
// the stored value; other kinds restore literal values.
func (r VariantRepository) VariantAssignments(
	ctx context.Context, variantID string,
) (domain.CleanedAssignment, error) {
	const op = "VariantRepository.VariantAssignments"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT a.id, a.name, a.input_type, a.value_required, a.choices,
		       av.value
		FROM variant_attribute_assignments aa
		JOIN attributes a ON a.id = aa.attribute_id
		LEFT JOIN variant_attribute_values av
		  ON av.variant_id = aa.variant_id
		 AND av.attribute_id = aa.attribute_id
		WHERE aa.variant_id = $1
		ORDER BY aa.attribute_id, av.position;
	`

	rows, err := r.sqldb.QueryContext(ctx, query, variantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var assignments domain.CleanedAssignment
	for rows.Next() {
		var (
			attr    domain.Attribute
			choices []byte
			value   sql.NullString
		)
		err := rows.Scan(
			&attr.ID, &attr.Name, &attr.InputType, &attr.ValueRequired,
			&choices, &value,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(choices, &attr.Choices); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		n := len(assignments)
		if n == 0 || assignments[n-1].Attribute.ID != attr.ID {
			assignments = append(assignments, domain.AttributeAssignment{
				Attribute: attr,
				Values:    domain.AttrValuesInput{AttributeID: attr.ID},
			})
			n++
		}
		if !value.Valid {
			continue
		}
		if attr.InputType == domain.AttributeInputFile {
			assignments[n-1].Values.FileURL = value.String
		} else {
			assignments[n-1].Values.Values = append(
				assignments[n-1].Values.Values, value.String,
			)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return assignments, nil
}

// UsedAttributeValues rebuilds the attribute-value signatures of the
// product's persisted variants. Assignments without values contribute
// an empty identifier list, mirroring the in-memory signature shape.
func (r VariantRepository) UsedAttributeValues(
	ctx context.Context, productID, excludeVariantID string,
) ([]domain.AttributeValues, error) {
	const op = "VariantRepository.UsedAttributeValues"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT aa.variant_id, aa.attribute_id, av.identifier
		FROM variant_attribute_assignments aa
		JOIN product_variants pv ON pv.id = aa.variant_id
		LEFT JOIN variant_attribute_values av
		  ON av.variant_id = aa.variant_id
		 AND av.attribute_id = aa.attribute_id
		WHERE pv.product_id = $1 AND ($2 = '' OR aa.variant_id <> $2)
		ORDER BY aa.variant_id, aa.attribute_id, av.position;
	`

	rows, err := r.sqldb.QueryContext(ctx, query, productID, excludeVariantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var (
		used       []domain.AttributeValues
		current    domain.AttributeValues
		currentVar string
	)
	for rows.Next() {
		var (
			variantID, attributeID string
			identifier             sql.NullString
		)
		err := rows.Scan(&variantID, &attributeID, &identifier)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if variantID != currentVar {
			if current != nil {
				used = append(used, current)
			}
			current = make(domain.AttributeValues)
			currentVar = variantID
		}
		if _, ok := current[attributeID]; !ok {
			current[attributeID] = []string{}
		}
		if identifier.Valid {
			current[attributeID] = append(current[attributeID], identifier.String)
		}
	}
	if current != nil {
		used = append(used, current)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return used, nil
}

// SaveVariant runs the persistence steps in one transaction: variant
// row, one-time default-variant assignment, stock rows, attribute
// links. A failed step leaves no partial state behind.
func (r VariantRepository) SaveVariant(
	ctx context.Context, p port.SaveVariantParams,
) (saved domain.ProductVariant, saveErr error) {
	const op = "VariantRepository.SaveVariant"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if saveErr == nil {
			if err := tx.Commit(); err != nil {
				saveErr = fmt.Errorf("%s: failed to commit: %w", op, mapUniqueViolation(err))
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	v := p.Variant
	if v.ID == "" {
		v.ID = uuid.NewString()
		v.CreatedAt = time.Now().UTC()
	}
	v.UpdatedAt = time.Now().UTC()

	if err := upsertVariantRow(ctx, tx, v, p.Signature); err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, mapUniqueViolation(err))
	}

	if err := ensureDefaultVariant(ctx, tx, v.ProductID, v.ID); err != nil {
		return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
	}

	if p.Stocks != nil {
		if err := replaceStocks(ctx, tx, v.ID, p.Stocks); err != nil {
			return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, mapUniqueViolation(err))
		}
	}

	if p.Attributes != nil {
		if err := replaceAttributeLinks(ctx, tx, v.ID, p.Attributes); err != nil {
			return domain.ProductVariant{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return v, nil
}

func upsertVariantRow(
	ctx context.Context, tx *sql.Tx, v domain.ProductVariant,
	sig domain.AttributeValues,
) error {
	metadata, err := json.Marshal(orEmptyMap(v.Metadata))
	if err != nil {
		return err
	}
	privateMetadata, err := json.Marshal(orEmptyMap(v.PrivateMetadata))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO product_variants (
			id, product_id, sku, name, track_inventory, weight,
			price_amount, quantity_limit_per_customer, is_preorder,
			preorder_global_threshold, preorder_end_date,
			metadata, private_metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			track_inventory = EXCLUDED.track_inventory,
			weight = EXCLUDED.weight,
			price_amount = EXCLUDED.price_amount,
			quantity_limit_per_customer = EXCLUDED.quantity_limit_per_customer,
			is_preorder = EXCLUDED.is_preorder,
			preorder_global_threshold = EXCLUDED.preorder_global_threshold,
			preorder_end_date = EXCLUDED.preorder_end_date,
			metadata = EXCLUDED.metadata,
			private_metadata = EXCLUDED.private_metadata,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = tx.ExecContext(ctx, query,
		v.ID, v.ProductID, nullString(v.SKU), v.Name, v.TrackInventory,
		v.Weight, v.PriceAmount, v.QuantityLimitPerCustomer, v.IsPreorder,
		v.PreorderGlobalThreshold, v.PreorderEndDate,
		string(metadata), string(privateMetadata), v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if sig != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE product_variants SET attributes_signature = $1 WHERE id = $2;`,
			sig.Canonical(), v.ID,
		)
	}
	return err
}

// ensureDefaultVariant performs the one-time, non-reversible
// first-variant-becomes-default assignment.
func ensureDefaultVariant(
	ctx context.Context, tx *sql.Tx, productID, variantID string,
) error {
	query := `
		UPDATE products
		SET default_variant_id = $1, updated_at = now()
		WHERE id = $2 AND default_variant_id IS NULL;
	`
	_, err := tx.ExecContext(ctx, query, variantID, productID)
	return err
}

func replaceStocks(
	ctx context.Context, tx *sql.Tx, variantID string,
	stocks []domain.StockInput,
) error {
	warehouseIDs := make([]string, len(stocks))
	for i, s := range stocks {
		warehouseIDs[i] = s.WarehouseID
	}
	if err := resolveWarehouses(ctx, tx, warehouseIDs); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM stocks WHERE variant_id = $1;`, variantID)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stocks (variant_id, warehouse_id, quantity)
		VALUES ($1, $2, $3);
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stocks {
		if _, err := stmt.ExecContext(ctx, variantID, s.WarehouseID, s.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func replaceAttributeLinks(
	ctx context.Context, tx *sql.Tx, variantID string,
	attrs domain.CleanedAssignment,
) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM variant_attribute_assignments WHERE variant_id = $1;`,
		variantID)
	if err != nil {
		return err
	}

	assignStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO variant_attribute_assignments (variant_id, attribute_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		return err
	}
	defer assignStmt.Close()

	valueStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO variant_attribute_values
			(variant_id, attribute_id, position, value, identifier)
		VALUES ($1, $2, $3, $4, $5);
	`)
	if err != nil {
		return err
	}
	defer valueStmt.Close()

	positions := make(map[string]int)
	for _, a := range attrs {
		attrID := a.Attribute.ID
		if _, err := assignStmt.ExecContext(ctx, variantID, attrID); err != nil {
			return err
		}

		for _, pair := range assignmentValues(a) {
			pos := positions[attrID]
			positions[attrID] = pos + 1
			_, err := valueStmt.ExecContext(ctx,
				variantID, attrID, pos, pair[0], pair[1])
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveWarehouses(ctx context.Context, tx *sql.Tx, ids []string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM warehouses WHERE id = ANY($1);`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return domain.NewValidationError(domain.FieldError{
			Field:      "stocks",
			Code:       domain.CodeNotFound,
			Message:    "Couldn't resolve to a warehouse.",
			Attributes: missing,
		})
	}
	return nil
}

func (r VariantRepository) ProductSearchDocument(
	ctx context.Context, productID string,
) (domain.ProductSearchDocument, error) {
	const op = "VariantRepository.ProductSearchDocument"

	if err := ctx.Err(); err != nil {
		return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, err)
	}

	doc := domain.ProductSearchDocument{ProductID: productID}

	err := r.sqldb.QueryRowContext(ctx,
		`SELECT name FROM products WHERE id = $1;`, productID,
	).Scan(&doc.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.sqldb.QueryContext(ctx, `
		SELECT name, COALESCE(sku, '')
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at, id;
	`, productID)
	if err != nil {
		return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, sku string
		if err := rows.Scan(&name, &sku); err != nil {
			return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, err)
		}
		if name != "" {
			doc.VariantNames = append(doc.VariantNames, name)
		}
		if sku != "" {
			doc.SKUs = append(doc.SKUs, sku)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, err)
	}

	values, err := r.productAttributeValues(ctx, productID)
	if err != nil {
		return domain.ProductSearchDocument{}, fmt.Errorf("%s: %w", op, err)
	}
	doc.AttributeValues = values

	return doc, nil
}

func (r VariantRepository) productAttributeValues(
	ctx context.Context, productID string,
) ([]string, error) {
	rows, err := r.sqldb.QueryContext(ctx, `
		SELECT DISTINCT av.value
		FROM variant_attribute_values av
		JOIN product_variants pv ON pv.id = av.variant_id
		WHERE pv.product_id = $1
		ORDER BY av.value;
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// RecalculateDiscountedPrice sets the product's discounted amount to
// the minimum variant price. Invoked by the async price worker.
func (r VariantRepository) RecalculateDiscountedPrice(
	ctx context.Context, productID string,
) error {
	const op = "VariantRepository.RecalculateDiscountedPrice"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE products
		SET discounted_amount = (
			SELECT MIN(price_amount)
			FROM product_variants
			WHERE product_id = $1
		), updated_at = now()
		WHERE id = $1;
	`
	if _, err := r.sqldb.ExecContext(ctx, query, productID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanVariant(row *sql.Row) (domain.ProductVariant, error) {
	var (
		v                         domain.ProductVariant
		metadata, privateMetadata []byte
	)
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.TrackInventory,
		&v.Weight, &v.PriceAmount, &v.QuantityLimitPerCustomer,
		&v.IsPreorder, &v.PreorderGlobalThreshold, &v.PreorderEndDate,
		&metadata, &privateMetadata, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return domain.ProductVariant{}, err
	}
	if err := json.Unmarshal(metadata, &v.Metadata); err != nil {
		return domain.ProductVariant{}, err
	}
	if err := json.Unmarshal(privateMetadata, &v.PrivateMetadata); err != nil {
		return domain.ProductVariant{}, err
	}
	return v, nil
}

// assignmentValues yields the (value, identifier) pairs one assignment
// contributes to storage: the raw value plus the identifier used for
// duplicate signatures.
func assignmentValues(a domain.AttributeAssignment) [][2]string {
	if a.Attribute.InputType == domain.AttributeInputFile {
		if a.Values.FileURL == "" {
			return nil
		}
		return [][2]string{{a.Values.FileURL, domain.FileValueIdentifier(a.Values.FileURL)}}
	}

	pairs := make([][2]string, len(a.Values.Values))
	for i, v := range a.Values.Values {
		pairs[i] = [2]string{v, v}
	}
	return pairs
}

// mapUniqueViolation converts storage-level uniqueness failures into
// the field errors the caller contract expects. The signature
// constraint is the backstop for concurrent duplicate creations that
// both passed the in-memory registry check.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case skuUniqueConstraint:
		return domain.NewValidationError(domain.FieldError{
			Field:   "sku",
			Code:    domain.CodeUnique,
			Message: "Product variant with this SKU already exists.",
		})
	case signatureUniqueConstraint:
		return domain.NewValidationError(domain.FieldError{
			Field:   "attributes",
			Code:    domain.CodeDuplicatedInputItem,
			Message: "Duplicated attribute values for product variant.",
		})
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
