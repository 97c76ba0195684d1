package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/brevo"
	"github.com/apehbe/charity-backend/internal/contact"
	contactmongo "github.com/apehbe/charity-backend/internal/contact/mongo"
	"github.com/apehbe/charity-backend/internal/core/events"
	"github.com/apehbe/charity-backend/internal/donation"
	donationmongo "github.com/apehbe/charity-backend/internal/donation/mongo"
	"github.com/apehbe/charity-backend/internal/gateway"
	"github.com/apehbe/charity-backend/internal/transport"
	"github.com/apehbe/charity-backend/internal/transport/rest"
	"github.com/apehbe/charity-backend/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle donation and contact API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config          *internal.Config
	MongoClient     *mongo.Client
	Router          *chi.Mux
	DonationHandler *donation.Handler
	WebhookHandler  *donation.WebhookHandler
	ContactHandler  *contact.Handler
	Logger          *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	allowedOrigins := splitOrigins(deps.Config.Server.AllowedOrigins)
	rest.RegisterAllRoutes(deps.Router, deps.MongoClient, deps.DonationHandler, deps.WebhookHandler, deps.ContactHandler, allowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			deps.Logger.Error("mongodb disconnect error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Logging.Format, config.Logging.Level)
	lg := logger.LoggerWrapper()

	client, err := connectMongo(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	db := client.Database(config.Database.Name)

	transactionRepo := donationmongo.NewTransactionRepository(db, lg)
	submissionRepo := contactmongo.NewFormSubmissionRepository(db, lg)
	newsletterRepo := contactmongo.NewNewsletterRepository(db, lg)

	indexCtx, cancel := context.WithTimeout(context.Background(), config.Database.ConnectTimeout)
	defer cancel()
	for _, ensure := range []func(context.Context) error{
		transactionRepo.EnsureIndexes,
		submissionRepo.EnsureIndexes,
		newsletterRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
	}

	eventBus := events.NewEventBus(lg)

	flutterwave := gateway.NewFlutterwave(gateway.FlutterwaveConfig{
		BaseURL:     config.Gateways.Flutterwave.BaseURL,
		SecretKey:   config.Gateways.Flutterwave.SecretKey,
		FrontendURL: config.Frontend.BaseURL,
		Timeout:     config.Gateways.RequestTimeout,
	}, lg)
	paystack := gateway.NewPaystack(gateway.PaystackConfig{
		BaseURL:     config.Gateways.Paystack.BaseURL,
		SecretKey:   config.Gateways.Paystack.SecretKey,
		FrontendURL: config.Frontend.BaseURL,
		Timeout:     config.Gateways.RequestTimeout,
	}, lg)

	reconciler := donation.NewReconciler(transactionRepo, eventBus, lg)
	donationService := donation.NewService(transactionRepo, reconciler, lg, flutterwave, paystack)
	authenticator := donation.NewWebhookAuthenticator(
		config.Gateways.Paystack.SecretKey,
		config.Gateways.Flutterwave.SecretHash,
	)

	brevoClient := brevo.NewClient(brevo.Config{
		BaseURL: config.Brevo.BaseURL,
		APIKey:  config.Brevo.APIKey,
	}, lg)
	contactService := contact.NewService(brevoClient, submissionRepo, newsletterRepo, contact.EmailConfig{
		AdminEmail:       config.Brevo.AdminEmail,
		SenderName:       config.Brevo.SenderName,
		SenderEmail:      config.Brevo.SenderEmail,
		NewsletterListID: config.Brevo.NewsletterListID,
	}, lg)

	// Receipt email for every confirmed donation.
	eventBus.Subscribe(events.EventTypeDonationCompleted, contactService.HandleDonationCompleted)

	baseHandler := transport.NewBaseHandler(lg)

	return &Dependencies{
		Config:          config,
		MongoClient:     client,
		Router:          chi.NewRouter(),
		DonationHandler: donation.NewHandler(baseHandler, donationService, lg),
		WebhookHandler:  donation.NewWebhookHandler(baseHandler, authenticator, reconciler, lg),
		ContactHandler:  contact.NewHandler(baseHandler, contactService, lg),
		Logger:          lg,
	}, nil
}

func connectMongo(cfg internal.DatabaseConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

func splitOrigins(raw string) []string {
	if raw == "" || raw == "*" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
