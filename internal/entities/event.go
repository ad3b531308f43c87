package entities

// EventKind discriminates inbound update payloads after platform decoding.
type EventKind string

const (
	EventText     EventKind = "text"
	EventCommand  EventKind = "command"
	EventCallback EventKind = "callback"
)

// InboundEvent is one admitted platform update, normalized across Telegram
// and WhatsApp. UpdateID is the bot-scoped monotonically increasing id used
// by the deduplicator.
type InboundEvent struct {
	UpdateID   int64
	BotID      int
	ChatID     string
	Platform   string
	Kind       EventKind
	Text       string
	Command    string // without leading slash, EventCommand only
	Payload    string // command argument (deep-link start payload)
	CallbackID string // platform callback query id, EventCallback only
	MessageID  int    // message the callback originated from
}

// EffectKind discriminates declarative interpreter outputs.
type EffectKind string

const (
	EffectSendText       EffectKind = "send_text"
	EffectShowMenu       EffectKind = "show_menu"
	EffectEditText       EffectKind = "edit_text"
	EffectAnswerCallback EffectKind = "answer_callback"
)

// Effect is a declarative instruction produced by the interpreter and not
// yet executed against the chat platform. Effects of one turn are delivered
// in emission order.
type Effect struct {
	Kind       EffectKind
	ChatID     string
	Text       string
	Buttons    [][]Button // inline keyboard rows, EffectShowMenu
	MessageID  int        // EffectEditText target
	CallbackID string     // EffectAnswerCallback target
}

func SendText(chatID, text string) Effect {
	return Effect{Kind: EffectSendText, ChatID: chatID, Text: text}
}

func ShowMenu(chatID, text string, rows [][]Button) Effect {
	return Effect{Kind: EffectShowMenu, ChatID: chatID, Text: text, Buttons: rows}
}

func AnswerCallback(callbackID, text string) Effect {
	return Effect{Kind: EffectAnswerCallback, CallbackID: callbackID, Text: text}
}
