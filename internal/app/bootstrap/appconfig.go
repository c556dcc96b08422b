// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, log
// level, request limits); AppConfig is everything specific to ObraTrack.
// The struct is passed to most lifecycle hooks, so any configuration
// needed during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: obratrack-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Email/SMTP configuration for welcome emails
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for unauthenticated relays)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@obratrack.com)
	MailFromName string // From display name

	// Task-assignment notification service
	NotifyEndpoint string // POST endpoint of the notification service; blank disables

	// Base URL for links in emails
	BaseURL string

	// Site display name used in emails
	SiteName string

	// Database operation timeouts; zero keeps the built-in defaults
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Director bootstrap: ensure this account exists and holds the
	// director role on startup
	DirectorEmail    string
	DirectorPassword string
}
