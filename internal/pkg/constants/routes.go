package constants

// Static route constants
const (
	PaymentsRoute       = "/payments"
	WebhookRoute        = "/webhook"
	InitiateRoute       = "/initiate"
	ProcessEntriesRoute = "/process-entries"
	StatusRoute         = "/status"
	APIRoute            = "/api"
	StatsRoute          = "/stats"
)
