// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/pong/internal/auth"
	"github.com/jason-s-yu/pong/internal/cache"
	"github.com/jason-s-yu/pong/internal/database"
	"github.com/jason-s-yu/pong/internal/handlers"
	"github.com/jason-s-yu/pong/internal/middleware"
)

func main() {
	// With key files configured, tokens survive restarts; otherwise a fresh
	// in-memory pair is generated and clients log in again.
	privPath := os.Getenv("AUTH_PRIVATE_KEY_FILE")
	pubPath := os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if privPath != "" && pubPath != "" {
		if err := auth.InitFromPath(privPath, pubPath); err != nil {
			log.Fatalf("failed to load signing keys: %v", err)
		}
	} else {
		auth.Init()
	}
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Match records are fire-and-forget; run without the queue if Redis is down.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, match records will be dropped: %v", err)
	}

	mux := http.NewServeMux()

	// account endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// session gateway
	srv := handlers.NewGameServer(logger)
	mux.Handle("/game/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
