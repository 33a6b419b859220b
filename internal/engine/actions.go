package engine

// Callback actions understood by the engine. They form the first segment of
// inline button callback data.
const (
	// ActionPriceType selects BUY or SELL for a price flow.
	ActionPriceType = "price_type"
	// ActionSharpTimeframe selects a timeframe for a sharp-turn flow.
	ActionSharpTimeframe = "sharp_tf"
)

// Button is an inline keyboard button intent. Action/FlowID/Payload are
// encoded into callback data by the transport layer.
type Button struct {
	Text    string
	Action  string
	FlowID  string
	Payload string
}

// Keyboard is a grid of button intents.
type Keyboard struct {
	Rows [][]Button
}

// Reply is one outbound message intent for the user who produced the event.
type Reply struct {
	Text     string
	Keyboard *Keyboard
}

// Result is everything an event produced. The engine never talks to the
// transport itself; the bot layer renders replies and the callback answer.
type Result struct {
	Replies []Reply
	// Answer is the toast shown for a rejected callback; empty means a
	// plain acknowledgement.
	Answer string
}

func (r *Result) reply(text string) {
	r.Replies = append(r.Replies, Reply{Text: text})
}

func (r *Result) replyWithKeyboard(text string, kb *Keyboard) {
	r.Replies = append(r.Replies, Reply{Text: text, Keyboard: kb})
}
