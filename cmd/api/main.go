package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/venyaka/Bank-REST/internal/cardcrypt"
	"github.com/venyaka/Bank-REST/internal/config"
	"github.com/venyaka/Bank-REST/internal/handler"
	"github.com/venyaka/Bank-REST/internal/middleware"
	"github.com/venyaka/Bank-REST/internal/repository"
	"github.com/venyaka/Bank-REST/internal/service"
	"github.com/venyaka/Bank-REST/internal/session"
	"github.com/venyaka/Bank-REST/internal/token"
	"github.com/venyaka/Bank-REST/internal/utils/email"
	"github.com/venyaka/Bank-REST/internal/vault"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)

	keys := vault.NewClient(cfg, logger)
	encryptor := cardcrypt.NewEncryptor(keys)

	codec := token.NewCodec([]byte(cfg.JWTSecret))
	tokens := token.NewManager(codec, repo, cfg.AccessTTL, cfg.RefreshTTL, logger)

	geo := session.NewIPStackClient(cfg.IPStackURL, cfg.IPStackKey, logger)
	sessions := session.NewService(repo, geo, logger)

	mailSender := email.NewSender(cfg, logger)

	authSvc := service.NewAuthService(repo, tokens, mailSender, sessions, logger)
	cardSvc := service.NewCardService(repo, repo, encryptor, cfg.CardExpirationYears, logger)
	userSvc := service.NewUserService(repo, logger)
	blockSvc := service.NewBlockRequestService(repo, repo, encryptor, logger)

	h := handler.NewHandler(authSvc, cardSvc, userSvc, blockSvc, tokens, logger)
	authenticator := middleware.NewAuthenticator(tokens, repo, logger)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.AuthMiddleware(authenticator, tokens))

	// Public routes (exempt from the auth gate)
	r.HandleFunc("/authorize/register", h.Register).Methods("POST")
	r.HandleFunc("/authorize/login", h.Login).Methods("POST")
	r.HandleFunc("/authorize/verify", h.Verify).Methods("POST")
	r.HandleFunc("/authorize/resend-verification", h.ResendVerification).Methods("POST")
	r.HandleFunc("/authorize/refreshToken", h.RefreshToken).Methods("POST")

	// User routes
	r.HandleFunc("/users/logout", h.Logout).Methods("POST")
	r.HandleFunc("/users/me", h.Me).Methods("GET")
	r.HandleFunc("/users/me", h.UpdateMe).Methods("PATCH")
	r.HandleFunc("/cards", h.ListCards).Methods("GET")
	r.HandleFunc("/cards/search", h.SearchCards).Methods("GET")
	r.HandleFunc("/cards/transfer", h.Transfer).Methods("POST")
	r.HandleFunc("/cards/block-requests", h.MyBlockRequests).Methods("GET")
	r.HandleFunc("/cards/{id:[0-9]+}", h.GetCard).Methods("GET")
	r.HandleFunc("/cards/{id:[0-9]+}/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/cards/{id:[0-9]+}/block", h.BlockCard).Methods("POST")
	r.HandleFunc("/cards/{id:[0-9]+}/block-request", h.RequestBlock).Methods("POST")
	r.HandleFunc("/cards/{id:[0-9]+}/activate", h.ActivateCard).Methods("POST")

	// Admin routes
	r.HandleFunc("/admin/users", h.ListUsers).Methods("GET")
	r.HandleFunc("/admin/users", h.CreateUser).Methods("POST")
	r.HandleFunc("/admin/users/{id:[0-9]+}", h.GetUser).Methods("GET")
	r.HandleFunc("/admin/users/{id:[0-9]+}", h.UpdateUser).Methods("PATCH")
	r.HandleFunc("/admin/users/{id:[0-9]+}", h.DeleteUser).Methods("DELETE")
	r.HandleFunc("/admin/cards", h.CreateCard).Methods("POST")
	r.HandleFunc("/admin/cards", h.ListAllCards).Methods("GET")
	r.HandleFunc("/admin/cards/block-requests", h.ListBlockRequests).Methods("GET")
	r.HandleFunc("/admin/cards/block-requests/{id:[0-9]+}/approve", h.ApproveBlockRequest).Methods("POST")
	r.HandleFunc("/admin/cards/block-requests/{id:[0-9]+}/reject", h.RejectBlockRequest).Methods("POST")
	r.HandleFunc("/admin/cards/{id:[0-9]+}", h.DeleteCard).Methods("DELETE")
	r.HandleFunc("/admin/cards/{id:[0-9]+}/balance", h.SetBalance).Methods("PUT")

	// Nightly maintenance: eager expiry sweep and stale session cleanup
	c := cron.New()
	if _, err := c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := repo.MarkExpiredCards(ctx); err != nil {
			logger.Errorf("Expired card sweep failed: %v", err)
		} else if n > 0 {
			logger.Infof("Expired card sweep: %d cards transitioned", n)
		}
		if n, err := repo.EndStaleSessions(ctx, 30*24*time.Hour); err != nil {
			logger.Errorf("Stale session cleanup failed: %v", err)
		} else if n > 0 {
			logger.Infof("Stale session cleanup: %d sessions closed", n)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule maintenance job: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
