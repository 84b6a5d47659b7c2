package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avelis/bookstore/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store owns the catalog, user directory, order history, and active
// sessions. All access goes through one mutex: stock check-and-decrement is
// a read-modify-write that must not interleave.
type Store struct {
	mu          sync.Mutex
	books       []models.Book
	users       []models.User
	orders      []models.Order
	sessions    map[string]*session
	nextOrderID int
}

// session holds the per-actor state: who is logged in and their cart.
// Keyed in Store.sessions by lowercased username, so each user has at most
// one active session.
type session struct {
	username string
	role     models.Role
	cart     []models.CartLine
}

// New creates an empty store
func New() *Store {
	return &Store{
		sessions:    make(map[string]*session),
		nextOrderID: 1,
	}
}

// Restore replaces the store's contents with a loaded snapshot. Active
// sessions are dropped. Meant for process startup, before any traffic.
func (s *Store) Restore(books []models.Book, users []models.User, orders []models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = append([]models.Book(nil), books...)
	s.users = append([]models.User(nil), users...)
	s.orders = append([]models.Order(nil), orders...)
	s.sessions = make(map[string]*session)

	s.nextOrderID = 1
	for _, o := range s.orders {
		if o.ID >= s.nextOrderID {
			s.nextOrderID = o.ID + 1
		}
	}
}

// Snapshot returns copies of the books, users, and orders for persistence
// at process shutdown. Carts are session state and are not part of it.
func (s *Store) Snapshot() ([]models.Book, []models.User, []models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := append([]models.Book(nil), s.books...)
	users := append([]models.User(nil), s.users...)
	orders := append([]models.Order(nil), s.orders...)
	return books, users, orders
}

// CreateUser adds a customer account. The password arrives already hashed;
// plaintext rules are enforced by the auth layer.
func (s *Store) CreateUser(username, passwordHash string) (models.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return models.User{}, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return models.User{}, ErrDuplicateUser
		}
	}

	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         models.RoleCustomer,
		CreatedAt:    time.Now(),
	}
	s.users = append(s.users, user)
	return user, nil
}

// FindUser looks up a user by case-insensitive username
func (s *Store) FindUser(username string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return models.User{}, false
}

// BeginSession opens a session with an empty cart for the given user.
// A previous session for the same user is discarded, returning its reserved
// units to stock.
func (s *Store) BeginSession(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user *models.User
	for i := range s.users {
		if strings.EqualFold(s.users[i].Username, username) {
			user = &s.users[i]
			break
		}
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	key := strings.ToLower(user.Username)
	if old, ok := s.sessions[key]; ok {
		s.restockLocked(old.cart)
	}
	s.sessions[key] = &session{username: user.Username, role: user.Role}
	return nil
}

// EndSession logs the user out. The in-progress cart is discarded and its
// reserved units returned to stock. Always succeeds.
func (s *Store) EndSession(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(username))
	if sess, ok := s.sessions[key]; ok {
		s.restockLocked(sess.cart)
		delete(s.sessions, key)
	}
}

// restockLocked returns one reserved unit per cart line to the catalog.
// Lines whose book was deleted from the catalog in the meantime have
// nothing to restock. Caller holds the mutex.
func (s *Store) restockLocked(cart []models.CartLine) {
	for _, line := range cart {
		for i := range s.books {
			if s.books[i].ID == line.BookID {
				s.books[i].Stock++
				break
			}
		}
	}
}

// ListBooks returns the catalog in insertion order
func (s *Store) ListBooks() []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Book(nil), s.books...)
}

// GetBook returns the catalog entry with the given id
func (s *Store) GetBook(id int) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Book{}, ErrNotFound
}

// AddToCart reserves one unit of the book and appends a snapshot line to
// the user's cart. The stock decrement and the line append happen together
// or not at all.
func (s *Store) AddToCart(username string, bookID int) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[strings.ToLower(username)]
	if !ok {
		return models.CartLine{}, ErrNotAuthenticated
	}

	var book *models.Book
	for i := range s.books {
		if s.books[i].ID == bookID {
			book = &s.books[i]
			break
		}
	}
	if book == nil {
		return models.CartLine{}, ErrNotFound
	}
	if book.Stock == 0 {
		return models.CartLine{}, ErrOutOfStock
	}
	for _, line := range sess.cart {
		if line.BookID == bookID {
			return models.CartLine{}, ErrAlreadyInCart
		}
	}

	book.Stock--
	line := models.CartLine{
		BookID: book.ID,
		Title:  book.Title,
		Author: book.Author,
		Price:  book.Price,
	}
	sess.cart = append(sess.cart, line)
	return line, nil
}

// RemoveFromCart drops the line for the given book and returns its reserved
// unit to stock, so stock keeps reflecting unsold inventory.
func (s *Store) RemoveFromCart(username string, bookID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[strings.ToLower(username)]
	if !ok {
		return ErrNotAuthenticated
	}

	for i, line := range sess.cart {
		if line.BookID == bookID {
			sess.cart = append(sess.cart[:i], sess.cart[i+1:]...)
			s.restockLocked([]models.CartLine{line})
			return nil
		}
	}
	return ErrNotFound
}

// Cart returns the user's cart lines in the order they were added
func (s *Store) Cart(username string) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return append([]models.CartLine(nil), sess.cart...), nil
}

// PlaceOrder turns the user's cart into an immutable order. The total is
// the exact decimal sum of the snapshotted line prices. The cart is cleared;
// sold units stay sold.
func (s *Store) PlaceOrder(username string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[strings.ToLower(username)]
	if !ok {
		return models.Order{}, ErrNotAuthenticated
	}
	if len(sess.cart) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	total := decimal.Zero
	for _, line := range sess.cart {
		total = total.Add(line.Price)
	}

	order := models.Order{
		ID:        s.nextOrderID,
		Number:    uuid.NewString(),
		Username:  sess.username,
		Items:     append([]models.CartLine(nil), sess.cart...),
		Total:     total,
		CreatedAt: time.Now(),
	}
	s.nextOrderID++
	s.orders = append(s.orders, order)
	sess.cart = nil
	return order, nil
}

// Orders returns the order history in chronological order. A non-empty
// filter restricts it to one user's orders.
func (s *Store) Orders(filterByUser string) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filterByUser == "" {
		return append([]models.Order(nil), s.orders...)
	}
	var out []models.Order
	for _, o := range s.orders {
		if strings.EqualFold(o.Username, filterByUser) {
			out = append(out, o)
		}
	}
	return out
}

// requireAdminLocked checks that the actor has an admin session.
// Caller holds the mutex.
func (s *Store) requireAdminLocked(actor string) error {
	sess, ok := s.sessions[strings.ToLower(actor)]
	if !ok {
		return ErrNotAuthenticated
	}
	if sess.role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// AddBook inserts a new catalog entry. Admin only.
func (s *Store) AddBook(actor string, book models.Book) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(actor); err != nil {
		return models.Book{}, err
	}
	if strings.TrimSpace(book.Title) == "" || strings.TrimSpace(book.Author) == "" {
		return models.Book{}, fmt.Errorf("%w: title and author are required", ErrValidation)
	}
	if book.Price.IsNegative() || book.Stock < 0 {
		return models.Book{}, fmt.Errorf("%w: price and stock must not be negative", ErrValidation)
	}
	for _, b := range s.books {
		if b.ID == book.ID {
			return models.Book{}, ErrDuplicateID
		}
	}

	s.books = append(s.books, book)
	return book, nil
}

// UpdateBook edits a catalog entry. Empty title or author means "leave
// unchanged"; price and stock are always overwritten. Admin only.
func (s *Store) UpdateBook(actor string, id int, title, author string, price decimal.Decimal, stock int) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(actor); err != nil {
		return models.Book{}, err
	}
	if price.IsNegative() || stock < 0 {
		return models.Book{}, fmt.Errorf("%w: price and stock must not be negative", ErrValidation)
	}

	for i := range s.books {
		if s.books[i].ID != id {
			continue
		}
		if t := strings.TrimSpace(title); t != "" {
			s.books[i].Title = t
		}
		if a := strings.TrimSpace(author); a != "" {
			s.books[i].Author = a
		}
		s.books[i].Price = price
		s.books[i].Stock = stock
		return s.books[i], nil
	}
	return models.Book{}, ErrNotFound
}

// DeleteBook removes a catalog entry. Deleting an absent id is a no-op
// success. Admin only.
func (s *Store) DeleteBook(actor string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(actor); err != nil {
		return err
	}
	for i := range s.books {
		if s.books[i].ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			return nil
		}
	}
	return nil
}
