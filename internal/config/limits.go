package config

const (
	// DefaultMaxSteps is the number of provider rounds one chat request may run.
	DefaultMaxSteps = 5

	// MaxStepsLimit caps MAX_STEPS. Each step is a paid provider call and the
	// whole loop runs inside one open HTTP response.
	MaxStepsLimit = 20

	// MaxMessagesPerRequest bounds the messages array of one chat request.
	MaxMessagesPerRequest = 500

	// MaxMessageContentLength bounds the raw content of one ingested message.
	MaxMessageContentLength = 100_000

	// DefaultConversationListLimit is the page size of GET /api/chats.
	DefaultConversationListLimit = 50

	// MaxConversationListLimit caps the limit query parameter of GET /api/chats.
	MaxConversationListLimit = 200

	// DefaultLogMaxFiles is how many server-*.log files LOG_DIR keeps.
	DefaultLogMaxFiles = 10
)

// MaxRequestBodyBytes bounds a JSON request body. Clients resend the whole
// transcript, so this must hold MaxMessagesPerRequest typical messages.
const MaxRequestBodyBytes = 10 << 20
