package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avelis/bookstore/internal/api"
	"github.com/avelis/bookstore/internal/auth"
	"github.com/avelis/bookstore/internal/config"
	"github.com/avelis/bookstore/internal/db"
	"github.com/avelis/bookstore/internal/models"
	"github.com/avelis/bookstore/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*WSClient]bool)
	clientsMu sync.RWMutex
)

// broadcastCatalog pushes the current catalog to all websocket clients so a
// storefront can show live stock levels.
func broadcastCatalog(st *store.Store) {
	catalog := struct {
		Books []models.Book `json:"books"`
	}{
		Books: st.ListBooks(),
	}
	data, err := json.Marshal(catalog)
	if err != nil {
		log.Printf("Failed to marshal catalog: %v", err)
		return
	}

	clientsMu.RLock()
	defer clientsMu.RUnlock()
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			log.Printf("Failed to send message: %v", err)
		}
	}
}

func handleWebSocket(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		client := &WSClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send initial catalog
		broadcastCatalog(st)

		// Keep connection alive and handle disconnection
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// Main entry point: loads the snapshot, wires the store, auth, and HTTP
// server, and saves the snapshot back on shutdown.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st := store.New()

	// With a database configured, books/users/orders come from the stored
	// snapshot; otherwise the built-in sample data is used.
	var database *db.DB
	if cfg.Database.URL != "" {
		database, err = db.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		books, users, orders, err := database.Load(ctx)
		if err != nil {
			log.Fatalf("Failed to load snapshot: %v", err)
		}
		st.Restore(books, users, orders)
		log.Printf("Loaded snapshot: %d books, %d users, %d orders", len(books), len(users), len(orders))
	} else {
		st.Restore(store.SeedBooks(), store.SeedUsers(), nil)
		log.Println("No DATABASE_URL set, using built-in sample data")
	}

	authService := auth.NewService(st, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := api.NewHandler(st, authService)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket endpoint
	r.Get("/ws", handleWebSocket(st))

	// Public endpoints
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Get("/books", handler.ListBooks)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(handler.JWTAuthMiddleware)
		r.Post("/auth/logout", handler.Logout)
		r.Get("/cart", handler.ViewCart)
		r.Post("/cart/{bookID}", handler.AddToCart)
		r.Delete("/cart/{bookID}", handler.RemoveFromCart)
		r.Post("/orders", handler.PlaceOrder)
		r.Get("/orders", handler.ListOrders)
		r.Post("/books", handler.AddBook)
		r.Put("/books/{id}", handler.UpdateBook)
		r.Delete("/books/{id}", handler.DeleteBook)
	})

	// Start periodic catalog broadcast
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		for range ticker.C {
			broadcastCatalog(st)
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	if database != nil {
		books, users, orders := st.Snapshot()
		if err := database.Save(shutdownCtx, books, users, orders); err != nil {
			log.Printf("Failed to save snapshot: %v", err)
		} else {
			log.Println("Snapshot saved")
		}
	}
}
