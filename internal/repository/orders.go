package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
)

// statusColumns maps a status to the column stamped when it is entered.
var statusColumns = map[domain.OrderStatus]string{
	domain.OrderStatusProcessing:     "processing_at",
	domain.OrderStatusConfirmed:      "confirmed_at",
	domain.OrderStatusPacked:         "packed_at",
	domain.OrderStatusShipped:        "shipped_at",
	domain.OrderStatusOutForDelivery: "out_for_delivery_at",
	domain.OrderStatusDelivered:      "delivered_at",
	domain.OrderStatusCancelled:      "cancelled_at",
	domain.OrderStatusRefunded:       "refunded_at",
}

// PlaceOptions carries the side effects bound to an order insert.
type PlaceOptions struct {
	PromoID *int64
}

// StatusChange is a compare-and-set transition of one order.
type StatusChange struct {
	OrderNumber  string
	From         domain.OrderStatus
	To           domain.OrderStatus
	Note         string
	At           time.Time
	RestoreStock bool
}

// CreateOrder inserts the order with its item snapshots and, in the same
// transaction, decrements stock, consumes the promo code, appends the first
// tracking record and writes the order.placed outbox event.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order, opts PlaceOptions) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertOrder(ctx, tx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			attrs, err := json.Marshal(item.Attributes)
			if err != nil {
				return fmt.Errorf("marshal item attributes: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_number, product_id, variation_id, product_name, attributes, quantity, price, line_total)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				order.OrderNumber,
				item.ProductID,
				nullableInt64(item.VariationID),
				item.ProductName,
				string(attrs),
				item.Quantity,
				item.Price,
				item.LineTotal)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			if item.VariationID == nil {
				continue
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE variations SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
				item.Quantity, *item.VariationID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			} else if n == 0 {
				return domain.NewRuleError(domain.ErrInsufficientStock.Code,
					fmt.Sprintf("insufficient stock for %s", item.ProductName))
			}
		}

		if opts.PromoID != nil {
			res, err := tx.ExecContext(ctx,
				`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1 AND used_count < usage_limit`,
				*opts.PromoID)
			if err != nil {
				return fmt.Errorf("consume promo code: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("consume promo code: %w", err)
			} else if n == 0 {
				return domain.ErrPromoExhausted
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO promo_redemptions (promo_code_id, user_id, order_number, discount_amount, redeemed_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				*opts.PromoID, nullableString(order.UserID), order.OrderNumber, order.DiscountAmount, order.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert promo redemption: %w", err)
			}
		}

		if err := insertTracking(ctx, tx, order.OrderNumber, "", domain.OrderStatusPending, "Order placed", order.CreatedAt); err != nil {
			return err
		}

		payload, err := json.Marshal(domain.OrderPlacedPayload{
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			SessionID:   order.SessionID,
			GrandTotal:  order.GrandTotal,
			PromoCode:   order.PromoCode,
			Items:       order.Items,
			PlacedAt:    order.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal order placed payload: %w", err)
		}
		return insertOutbox(ctx, tx, order.OrderNumber, domain.EventOrderPlaced, payload, order.CreatedAt)
	})
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	query := `INSERT INTO orders (order_number, user_id, session_id, first_name, last_name, phone_number, full_address,
	              country_id, district_id, thana_id, postal_code, birth_date, birth_month, order_note, payment_method,
	              subtotal, promo_code, discount_amount, order_total, shipping_cost, tax_rate, tax_amount, grand_total,
	              status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	              $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	var birthDate sql.NullInt64
	if o.BirthDate != nil {
		birthDate = sql.NullInt64{Int64: int64(*o.BirthDate), Valid: true}
	}
	_, err := tx.ExecContext(ctx, query,
		o.OrderNumber,
		nullableString(o.UserID),
		o.SessionID,
		o.FirstName,
		o.LastName,
		o.PhoneNumber,
		o.FullAddress,
		o.CountryID,
		o.DistrictID,
		nullableInt64(o.ThanaID),
		o.PostalCode,
		birthDate,
		o.BirthMonth,
		o.OrderNote,
		string(o.PaymentMethod),
		o.Subtotal,
		nullableString(o.PromoCode),
		o.DiscountAmount,
		o.OrderTotal,
		o.ShippingCost,
		o.TaxRate,
		o.TaxAmount,
		o.GrandTotal,
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateStatus applies the change only if the order is still in c.From.
func (r *Repository) UpdateStatus(ctx context.Context, c StatusChange) error {
	column, ok := statusColumns[c.To]
	if !ok {
		return fmt.Errorf("no timestamp column for status %q", c.To)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(
			`UPDATE orders SET status = $1, updated_at = $2, %s = $2 WHERE order_number = $3 AND status = $4`, column)
		res, err := tx.ExecContext(ctx, query, string(c.To), c.At, c.OrderNumber, string(c.From))
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update order status: %w", err)
		} else if n == 0 {
			return ErrStatusConflict
		}

		if c.RestoreStock {
			if err := restoreStock(ctx, tx, c.OrderNumber); err != nil {
				return err
			}
		}

		if err := insertTracking(ctx, tx, c.OrderNumber, c.From, c.To, c.Note, c.At); err != nil {
			return err
		}

		payload, err := json.Marshal(domain.StatusChangedPayload{
			OrderNumber: c.OrderNumber,
			OldStatus:   c.From,
			NewStatus:   c.To,
			Note:        c.Note,
			ChangedAt:   c.At,
		})
		if err != nil {
			return fmt.Errorf("marshal status changed payload: %w", err)
		}
		return insertOutbox(ctx, tx, c.OrderNumber, domain.EventOrderStatusChanged, payload, c.At)
	})
}

func restoreStock(ctx context.Context, tx *sql.Tx, orderNumber string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT variation_id, quantity FROM order_items WHERE order_number = $1 AND variation_id IS NOT NULL`,
		orderNumber)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	type restock struct {
		variationID int64
		quantity    int
	}
	var items []restock
	for rows.Next() {
		var it restock
		if err := rows.Scan(&it.variationID, &it.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE variations SET stock = stock + $1 WHERE id = $2`, it.quantity, it.variationID); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}
	return nil
}

func insertTracking(ctx context.Context, tx *sql.Tx, orderNumber string, from, to domain.OrderStatus, note string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_tracking (order_number, old_status, new_status, note, created_at) VALUES ($1, $2, $3, $4, $5)`,
		orderNumber, nullableString(string(from)), string(to), note, at)
	if err != nil {
		return fmt.Errorf("insert tracking record: %w", err)
	}
	return nil
}

func insertOutbox(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload []byte, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), aggregateID, eventType, string(payload), at)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

const orderColumns = `order_number, user_id, session_id, first_name, last_name, phone_number, full_address,
	country_id, district_id, thana_id, postal_code, birth_date, birth_month, order_note, payment_method,
	subtotal, promo_code, discount_amount, order_total, shipping_cost, tax_rate, tax_amount, grand_total,
	status, created_at, updated_at, processing_at, confirmed_at, packed_at, shipped_at, out_for_delivery_at,
	delivered_at, cancelled_at, refunded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var (
		userID, promoCode sql.NullString
		thanaID, birth    sql.NullInt64
		stamps            [8]sql.NullTime
	)
	err := row.Scan(
		&o.OrderNumber, &userID, &o.SessionID, &o.FirstName, &o.LastName, &o.PhoneNumber, &o.FullAddress,
		&o.CountryID, &o.DistrictID, &thanaID, &o.PostalCode, &birth, &o.BirthMonth, &o.OrderNote, &o.PaymentMethod,
		&o.Subtotal, &promoCode, &o.DiscountAmount, &o.OrderTotal, &o.ShippingCost, &o.TaxRate, &o.TaxAmount, &o.GrandTotal,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
		&stamps[0], &stamps[1], &stamps[2], &stamps[3], &stamps[4], &stamps[5], &stamps[6], &stamps[7],
	)
	if err != nil {
		return nil, err
	}
	o.UserID = userID.String
	o.PromoCode = promoCode.String
	if thanaID.Valid {
		id := thanaID.Int64
		o.ThanaID = &id
	}
	if birth.Valid {
		d := int(birth.Int64)
		o.BirthDate = &d
	}

	o.StatusTimes = map[domain.OrderStatus]time.Time{domain.OrderStatusPending: o.CreatedAt}
	order := []domain.OrderStatus{
		domain.OrderStatusProcessing, domain.OrderStatusConfirmed, domain.OrderStatusPacked, domain.OrderStatusShipped,
		domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered, domain.OrderStatusCancelled, domain.OrderStatusRefunded,
	}
	for i, st := range order {
		if stamps[i].Valid {
			o.StatusTimes[st] = stamps[i].Time
		}
	}
	return o, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("order %s", orderNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if order.Items, err = r.listItems(ctx, orderNumber); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, o := range orders {
		if o.Items, err = r.listItems(ctx, o.OrderNumber); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) listItems(ctx context.Context, orderNumber string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, variation_id, product_name, attributes, quantity, price, line_total
		 FROM order_items WHERE order_number = $1 ORDER BY id`, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var (
			it          domain.OrderItem
			variationID sql.NullInt64
			attrs       string
		)
		if err := rows.Scan(&it.ProductID, &variationID, &it.ProductName, &attrs, &it.Quantity, &it.Price, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if variationID.Valid {
			id := variationID.Int64
			it.VariationID = &id
		}
		if err := json.Unmarshal([]byte(attrs), &it.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal item attributes: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// ListTracking returns the tracking history oldest first.
func (r *Repository) ListTracking(ctx context.Context, orderNumber string) ([]domain.TrackingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_number, old_status, new_status, note, created_at
		 FROM order_tracking WHERE order_number = $1 ORDER BY id`, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("query tracking: %w", err)
	}
	defer rows.Close()

	records := []domain.TrackingRecord{}
	for rows.Next() {
		var (
			rec domain.TrackingRecord
			old sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.OrderNumber, &old, &rec.NewStatus, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking record: %w", err)
		}
		rec.OldStatus = domain.OrderStatus(old.String)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
