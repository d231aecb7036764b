// @title           Supplier Portal API
// @version         1.0
// @description     Supplier procurement portal backend - proxies tender, bid, invitation, clarification and prequalification data from the ERP with demo-data fallback.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "portal/docs"
	"portal/handlers"
	"portal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"https://supplier.portal.example.com",
		"http://localhost:3000",
		"http://localhost:9000",
	}
	if extra := os.Getenv("CORS_ALLOW_ORIGIN"); extra != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, extra)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer", "X-Request-Id",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Content-Type", "Content-Disposition", "X-Request-Id",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

// RequestIDMiddleware tags every request for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func main() {
	erp := storage.InitERP()
	if erp.Configured() {
		log.Printf("Upstream ERP configured at %s (write mode: %s)", erp.BaseURL, erp.WriteMode)
	} else {
		log.Printf("Running in demo mode, all reads served from fallback data (write mode: %s)", erp.WriteMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	// Recovery keeps unexpected panics inside a generic 500 envelope;
	// stack traces go to the log, never to the client.
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("PANIC recovered: %v (request_id: %s)", recovered, c.GetString("request_id"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))
	r.Use(RequestIDMiddleware())
	r.Use(cors.New(CORSConfig()))

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Session
	r.POST("/api/validate-session", handlers.ValidateSession())

	// Tenders
	r.GET("/api/tenders", handlers.GetTenders())
	r.GET("/api/tenders/:tender_id", handlers.GetTender())
	r.GET("/api/export_tenders", handlers.ExportTendersCSV())
	r.GET("/api/export_tenders_excel", handlers.ExportTendersExcel())

	// Invitations
	r.GET("/api/tender-invitations", handlers.GetInvitations())
	r.PUT("/api/tender-invitations/:invitation_id/respond", handlers.RespondInvitation())

	// Bids
	r.GET("/api/tender-bids", handlers.GetBids())
	r.POST("/api/tender-bids", handlers.CreateBid())
	r.PUT("/api/tender-bids/:bid_id", handlers.UpdateBid())
	r.PATCH("/api/tender-bids/:bid_id/submit", handlers.SubmitBid())
	r.GET("/api/tender-bids/:bid_id/receipt", handlers.BidReceiptPDF())

	// Clarifications
	r.GET("/api/tender-clarifications", handlers.GetClarifications())
	r.POST("/api/tender-clarifications", handlers.CreateClarification())
	r.PATCH("/api/tender-clarifications/:clarification_id/publish", handlers.PublishClarification())

	// Prequalification rounds
	r.GET("/api/prequalification-rounds", handlers.GetRounds())
	r.POST("/api/prequalification-rounds/:round_id/apply", handlers.ApplyToRound())

	// Supplier profile
	r.GET("/api/supplier-profile", handlers.GetProfile())
	r.PUT("/api/supplier-profile", handlers.UpdateProfile())

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	// Get port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
