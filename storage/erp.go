package storage

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Write fallback modes. In demo mode a failed upstream write is acknowledged
// locally and tagged degraded; in strict mode it surfaces as a 502.
const (
	WriteModeDemo   = "demo"
	WriteModeStrict = "strict"
)

// ERPConfig is the process-wide upstream configuration. It is built once at
// startup and never mutated afterwards; an empty BaseURL is a valid state and
// means every read serves demo data.
type ERPConfig struct {
	BaseURL       string
	WriteMode     string
	PortalBaseURL string // public portal URL, used for QR links on receipts
	Client        *http.Client
}

var erp *ERPConfig

func InitERP() *ERPConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	baseURL := strings.TrimRight(os.Getenv("ERP_BASE_URL"), "/")
	if baseURL == "" {
		log.Println("ERP_BASE_URL not configured, portal will serve demo data")
	}

	writeMode := os.Getenv("WRITE_FALLBACK_MODE")
	switch writeMode {
	case WriteModeDemo, WriteModeStrict:
	case "":
		writeMode = WriteModeDemo
	default:
		log.Printf("Unknown WRITE_FALLBACK_MODE %q, falling back to demo mode", writeMode)
		writeMode = WriteModeDemo
	}

	portalURL := strings.TrimRight(os.Getenv("PORTAL_BASE_URL"), "/")
	if portalURL == "" {
		portalURL = "http://localhost:9000"
	}

	erp = &ERPConfig{
		BaseURL:       baseURL,
		WriteMode:     writeMode,
		PortalBaseURL: portalURL,
		// Per-call deadlines come from request contexts; the transport-level
		// timeout is only a safety net.
		Client: &http.Client{Timeout: 30 * time.Second},
	}
	return erp
}

func GetERP() *ERPConfig {
	return erp
}

// SetERP replaces the active configuration. Used by tests to point the
// gateway at an httptest server.
func SetERP(cfg *ERPConfig) {
	erp = cfg
}

// Configured reports whether a live upstream is configured at all.
func (c *ERPConfig) Configured() bool {
	return c != nil && c.BaseURL != ""
}

// PortalURL returns the public portal base URL used for links on generated
// documents. Safe on a nil receiver, like the other accessors.
func (c *ERPConfig) PortalURL() string {
	if c == nil || c.PortalBaseURL == "" {
		return "http://localhost:9000"
	}
	return c.PortalBaseURL
}

// StrictWrites reports whether failed writes must surface instead of being
// acknowledged locally.
func (c *ERPConfig) StrictWrites() bool {
	return c != nil && c.WriteMode == WriteModeStrict
}
