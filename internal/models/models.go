package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role controls access to catalog administration
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents a registered user
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Book is a catalog entry. Stock counts unsold, unreserved units.
type Book struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
}

// CartLine is a snapshot of a book taken when it was added to a cart.
// Catalog edits after that point do not affect it.
type CartLine struct {
	BookID int             `json:"book_id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
}

// Order is an immutable record of a placed order
type Order struct {
	ID        int             `json:"id"`
	Number    string          `json:"number"`
	Username  string          `json:"username"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}
