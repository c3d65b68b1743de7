package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct{ DB *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *PostgresStore { return &PostgresStore{DB: db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ---- products ----

const productCols = `id, seller_id, name, description, material, height, width, depth,
	rate_cents, stock, is_sold, features, color, version, created_at, updated_at`

func scanProduct(row pgx.Row) (market.Product, error) {
	var p market.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Material,
		&p.Height, &p.Width, &p.Depth, &p.RateCents, &p.Stock, &p.IsSold,
		&p.Features, &p.Color, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Product{}, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (market.Product, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	return scanProduct(row)
}

func (s *PostgresStore) PutProduct(ctx context.Context, p market.Product, expectedVersion int64) (market.Product, error) {
	now := time.Now().UTC()
	if expectedVersion == 0 {
		p.Version = 1
		p.CreatedAt = now
		p.UpdatedAt = now
		_, err := s.DB.Exec(ctx, `
			INSERT INTO products (`+productCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			p.ID, p.SellerID, p.Name, p.Description, p.Material, p.Height, p.Width, p.Depth,
			p.RateCents, p.Stock, p.IsSold, p.Features, p.Color, p.Version, p.CreatedAt, p.UpdatedAt)
		if isUniqueViolation(err) {
			return market.Product{}, ErrVersionConflict
		}
		return p, err
	}

	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET seller_id=$3, name=$4, description=$5, material=$6,
			height=$7, width=$8, depth=$9, rate_cents=$10, stock=$11, is_sold=$12,
			features=$13, color=$14, version=version+1, updated_at=$15
		WHERE id=$1 AND version=$2`,
		p.ID, expectedVersion, p.SellerID, p.Name, p.Description, p.Material,
		p.Height, p.Width, p.Depth, p.RateCents, p.Stock, p.IsSold, p.Features, p.Color, now)
	if err != nil {
		return market.Product{}, err
	}
	if ct.RowsAffected() == 0 {
		return market.Product{}, s.putConflict(ctx, `SELECT 1 FROM products WHERE id=$1`, p.ID)
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = now
	return p, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, f ProductFilter) ([]market.Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE ($1='' OR seller_id=$1) AND ($2='' OR material=$2) ORDER BY created_at DESC`
	rows, err := s.DB.Query(ctx, q, f.SellerID, string(f.Material))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- orders ----

const orderCols = `id, order_number, buyer_id, product_id, quantity, unit_rate_cents,
	total_cents, payment_method, status, payment_status, shipping_address, order_notes,
	version, created_at, updated_at`

func scanOrder(row pgx.Row) (market.Order, error) {
	var o market.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.ProductID, &o.Quantity,
		&o.UnitRateCents, &o.TotalCents, &o.PaymentMethod, &o.Status, &o.PaymentStatus,
		&o.ShippingAddress, &o.OrderNotes, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Order{}, ErrNotFound
	}
	return o, err
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (market.Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
	return scanOrder(row)
}

func (s *PostgresStore) PutOrder(ctx context.Context, o market.Order, expectedVersion int64) (market.Order, error) {
	now := time.Now().UTC()
	if expectedVersion == 0 {
		o.Version = 1
		o.CreatedAt = now
		o.UpdatedAt = now
		_, err := s.DB.Exec(ctx, `
			INSERT INTO orders (`+orderCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			o.ID, o.OrderNumber, o.BuyerID, o.ProductID, o.Quantity, o.UnitRateCents,
			o.TotalCents, o.PaymentMethod, o.Status, o.PaymentStatus, o.ShippingAddress,
			o.OrderNotes, o.Version, o.CreatedAt, o.UpdatedAt)
		if isUniqueViolation(err) {
			return market.Order{}, ErrVersionConflict
		}
		return o, err
	}

	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET status=$3, payment_status=$4, version=version+1, updated_at=$5
		WHERE id=$1 AND version=$2`,
		o.ID, expectedVersion, o.Status, o.PaymentStatus, now)
	if err != nil {
		return market.Order{}, err
	}
	if ct.RowsAffected() == 0 {
		return market.Order{}, s.putConflict(ctx, `SELECT 1 FROM orders WHERE id=$1`, o.ID)
	}
	o.Version = expectedVersion + 1
	o.UpdatedAt = now
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, f OrderFilter) ([]market.Order, error) {
	q := `SELECT o.id, o.order_number, o.buyer_id, o.product_id, o.quantity, o.unit_rate_cents,
			o.total_cents, o.payment_method, o.status, o.payment_status, o.shipping_address,
			o.order_notes, o.version, o.created_at, o.updated_at
		FROM orders o
		LEFT JOIN products p ON p.id = o.product_id
		WHERE ($1='' OR o.buyer_id=$1)
		  AND ($2='' OR o.product_id=$2)
		  AND ($3='' OR p.seller_id=$3)
		  AND (cardinality($4::text[])=0 OR o.status = ANY($4::text[]))
		ORDER BY o.created_at DESC`

	statuses := make([]string, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, string(st))
	}
	rows, err := s.DB.Query(ctx, q, f.BuyerID, f.ProductID, f.SellerID, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ---- users ----

const userCols = `id, email, role, is_verified, version, created_at`

func scanUser(row pgx.Row) (market.User, error) {
	var u market.User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.IsVerified, &u.Version, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.User{}, ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (market.User, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (s *PostgresStore) PutUser(ctx context.Context, u market.User, expectedVersion int64) (market.User, error) {
	if expectedVersion == 0 {
		u.Version = 1
		u.CreatedAt = time.Now().UTC()
		_, err := s.DB.Exec(ctx, `
			INSERT INTO users (`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.Email, u.Role, u.IsVerified, u.Version, u.CreatedAt)
		if isUniqueViolation(err) {
			return market.User{}, ErrVersionConflict
		}
		return u, err
	}

	ct, err := s.DB.Exec(ctx, `
		UPDATE users SET email=$3, role=$4, is_verified=$5, version=version+1
		WHERE id=$1 AND version=$2`,
		u.ID, expectedVersion, u.Email, u.Role, u.IsVerified)
	if err != nil {
		return market.User{}, err
	}
	if ct.RowsAffected() == 0 {
		return market.User{}, s.putConflict(ctx, `SELECT 1 FROM users WHERE id=$1`, u.ID)
	}
	u.Version = expectedVersion + 1
	return u, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, f UserFilter) ([]market.User, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+userCols+` FROM users WHERE ($1='' OR role=$1) ORDER BY created_at DESC`,
		string(f.Role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// putConflict distinguishes a stale version from a deleted record after a
// zero-row CAS update.
func (s *PostgresStore) putConflict(ctx context.Context, existsQuery, id string) error {
	var one int
	err := s.DB.QueryRow(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrVersionConflict
}
