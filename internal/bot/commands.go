package bot

// Command constants for Telegram bot commands.
const (
	CommandStart  = "/start"
	CommandAlerts = "/alerts"
)

// Callback actions owned by the transport layer. Flow-level actions live in
// the engine package.
const (
	CallbackMenuPrice     = "menu_price"
	CallbackMenuSharpTurn = "menu_sharpturn"
)
