package main

import (
	"log"
	"net/http"
	"os"

	"networth/internal/handlers"
	"networth/internal/session"
	"networth/internal/storage"
)

func main() {
	port := envOr("PORT", "8080")
	dbPath := envOr("DB_PATH", "networth.db")
	templateDir := envOr("TEMPLATE_DIR", "web/templates")
	staticDir := envOr("STATIC_DIR", "web/static")
	secureCookie := os.Getenv("SECURE_COOKIES") == "true"

	// The signing secret is the only root of trust for session tokens;
	// refuse to start without one.
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Fatal("SECRET_KEY must be set")
	}

	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	codec := session.NewCodec([]byte(secret))
	h := handlers.NewHandlers(db, codec, templateDir, secureCookie)
	router := setupRouter(h, staticDir)

	log.Printf("Listening on :%s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// setupRouter builds the route table. Identity resolution wraps every route;
// only /history requires a logged-in user.
func setupRouter(h *handlers.Handlers, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("POST /calculate", h.Calculate)
	mux.HandleFunc("GET /signup", h.SignupForm)
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.Handle("GET /history", h.RequireUser(http.HandlerFunc(h.History)))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	return h.WithIdentity(mux)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
