// Package db is the optional persistence collaborator for the store: a
// snapshot of books, users, and orders loaded at startup and saved at
// shutdown. It is never on the per-request path; the store itself stays
// in memory.
package db

import (
	"context"
	"fmt"

	"github.com/avelis/bookstore/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Load reads the stored snapshot. Books and users come back in the order
// they were saved, orders in chronological order.
func (db *DB) Load(ctx context.Context) ([]models.Book, []models.User, []models.Order, error) {
	books, err := db.loadBooks(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	users, err := db.loadUsers(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	orders, err := db.loadOrders(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return books, users, orders, nil
}

func (db *DB) loadBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, title, author, price::text, stock FROM books ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		var price string
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &price, &b.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if b.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse book price: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (db *DB) loadUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT username, password_hash, role, created_at FROM users ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) loadOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, number::text, username, total::text, created_at FROM orders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var total string
		if err := rows.Scan(&o.ID, &o.Number, &o.Username, &total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse order total: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := db.loadOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (db *DB) loadOrderItems(ctx context.Context, orderID int) ([]models.CartLine, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT book_id, title, author, price::text FROM order_items WHERE order_id = $1 ORDER BY position",
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []models.CartLine
	for rows.Next() {
		var line models.CartLine
		var price string
		if err := rows.Scan(&line.BookID, &line.Title, &line.Author, &price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if line.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse item price: %w", err)
		}
		items = append(items, line)
	}
	return items, rows.Err()
}

// Save replaces the stored snapshot with the given one in a single
// transaction. Insertion order of books and users is preserved.
func (db *DB) Save(ctx context.Context, books []models.Book, users []models.User, orders []models.Order) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE books, users, orders, order_items RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	for _, b := range books {
		if _, err := tx.Exec(ctx,
			"INSERT INTO books (id, title, author, price, stock) VALUES ($1, $2, $3, $4::numeric, $5)",
			b.ID, b.Title, b.Author, b.Price.String(), b.Stock); err != nil {
			return fmt.Errorf("failed to save book %d: %w", b.ID, err)
		}
	}
	for _, u := range users {
		if _, err := tx.Exec(ctx,
			"INSERT INTO users (username, password_hash, role, created_at) VALUES ($1, $2, $3, $4)",
			u.Username, u.PasswordHash, string(u.Role), u.CreatedAt); err != nil {
			return fmt.Errorf("failed to save user %s: %w", u.Username, err)
		}
	}
	for _, o := range orders {
		if err := saveOrder(ctx, tx, o); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func saveOrder(ctx context.Context, tx pgx.Tx, o models.Order) error {
	if _, err := tx.Exec(ctx,
		"INSERT INTO orders (id, number, username, total, created_at) VALUES ($1, $2::uuid, $3, $4::numeric, $5)",
		o.ID, o.Number, o.Username, o.Total.String(), o.CreatedAt); err != nil {
		return fmt.Errorf("failed to save order %d: %w", o.ID, err)
	}
	for pos, line := range o.Items {
		if _, err := tx.Exec(ctx,
			"INSERT INTO order_items (order_id, position, book_id, title, author, price) VALUES ($1, $2, $3, $4, $5, $6::numeric)",
			o.ID, pos, line.BookID, line.Title, line.Author, line.Price.String()); err != nil {
			return fmt.Errorf("failed to save order item: %w", err)
		}
	}
	return nil
}
