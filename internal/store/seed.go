package store

import (
	"time"

	"github.com/avelis/bookstore/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// SeedBooks returns the sample catalog used when no snapshot is loaded
func SeedBooks() []models.Book {
	return []models.Book{
		{ID: 1, Title: "Clean Code", Author: "Robert C. Martin", Price: decimal.NewFromInt(450), Stock: 12},
		{ID: 2, Title: "Effective Java", Author: "Joshua Bloch", Price: decimal.NewFromInt(550), Stock: 8},
		{ID: 3, Title: "Introduction to Algorithms", Author: "Cormen", Price: decimal.NewFromInt(900), Stock: 5},
		{ID: 4, Title: "Design Patterns", Author: "Gang of Four", Price: decimal.NewFromInt(600), Stock: 7},
		{ID: 5, Title: "Head First Java", Author: "Kathy Sierra", Price: decimal.NewFromInt(400), Stock: 15},
		{ID: 6, Title: "Java: The Complete Reference", Author: "Herbert Schildt", Price: decimal.NewFromInt(750), Stock: 6},
		{ID: 7, Title: "Thinking in Java", Author: "Bruce Eckel", Price: decimal.NewFromInt(500), Stock: 9},
		{ID: 8, Title: "Java Concurrency in Practice", Author: "Brian Goetz", Price: decimal.NewFromInt(650), Stock: 4},
		{ID: 9, Title: "Spring in Action", Author: "Craig Walls", Price: decimal.NewFromInt(700), Stock: 10},
		{ID: 10, Title: "Head First Design Patterns", Author: "Eric Freeman", Price: decimal.NewFromInt(550), Stock: 11},
	}
}

// SeedUsers returns the default accounts: the stock customer and an admin
// for catalog management. Hashes are computed here so no plaintext is stored.
func SeedUsers() []models.User {
	return []models.User{
		{Username: "user", PasswordHash: mustHash("1234"), Role: models.RoleCustomer, CreatedAt: time.Now()},
		{Username: "admin", PasswordHash: mustHash("admin123"), Role: models.RoleAdmin, CreatedAt: time.Now()},
	}
}

func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}
