package rest

import (
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/apehbe/charity-backend/internal/contact"
	"github.com/apehbe/charity-backend/internal/donation"
	"github.com/apehbe/charity-backend/internal/transport/middleware"
)

func RegisterAllRoutes(router *chi.Mux, client *mongo.Client, donationHandler *donation.Handler, webhookHandler *donation.WebhookHandler, contactHandler *contact.Handler, allowedOrigins []string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(client)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Mount API under /api/v1
	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Donation routes
		if donationHandler != nil {
			r.Route("/payments", func(pr chi.Router) {
				pr.Post("/{gateway}/initialize", donationHandler.Initialize)
				pr.Get("/{gateway}/verify", donationHandler.Verify)
				pr.Post("/{gateway}/verify", donationHandler.Verify)
				pr.Get("/transactions", donationHandler.ListByEmail)
				pr.Get("/transactions/{reference}", donationHandler.GetByReference)
			})
		}

		// Gateway webhook routes, authenticated by signature not session
		if webhookHandler != nil {
			r.Route("/webhooks", func(wr chi.Router) {
				wr.Post("/flutterwave", webhookHandler.HandleFlutterwave)
				wr.Post("/paystack", webhookHandler.HandlePaystack)
			})
		}

		// Brevo backed contact and email routes
		if contactHandler != nil {
			r.Route("/brevo", func(br chi.Router) {
				br.Post("/contact-form", contactHandler.SubmitContactForm)
				br.Post("/newsletter/subscribe", contactHandler.SubscribeNewsletter)
				br.Post("/add-contact", contactHandler.AddContact)
				br.Post("/send-email", contactHandler.SendEmail)
			})
		}
	})
}
