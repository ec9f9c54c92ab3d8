package apperrors

import "go.uber.org/zap"

// userMessages is the fixed taxonomy-to-message table shown to end users.
// Never expose internal identifiers here.
var userMessages = map[Kind]string{
	KindConnection:      "I'm having trouble accessing my memory right now.",
	KindQuery:           "I'm having trouble accessing my memory right now.",
	KindIntegrity:       "I'm having trouble accessing my memory right now.",
	KindRateLimit:       "I'm having trouble connecting to my AI brain.",
	KindAuth:            "I'm having trouble connecting to my AI brain.",
	KindProviderError:   "I'm having trouble connecting to my AI brain.",
	KindValidation:      "That doesn't look quite right, could you rephrase?",
	KindInvalidCmd:      "I didn't understand that command.",
	KindMissingConfig:   "I'm not configured correctly yet.",
	KindInvalidConfig:   "I'm not configured correctly yet.",
	KindFeatureDisabled: "That feature isn't turned on for you.",
	KindNotImplemented:  "I can't do that yet.",
	KindUnauthorized:    "You're not allowed to do that.",
	KindRateLimited:     "Slow down a little, you've sent too many messages.",
}

const fallbackMessage = "Something went wrong. Please try again in a moment."

// DetailLevel controls how much is logged/notified: 0 = nothing beyond a
// one-line log, 3 = full error chain to admins.
type DetailLevel int

const (
	DetailNone  DetailLevel = 0
	DetailBasic DetailLevel = 1
	DetailFull  DetailLevel = 3
)

// AdminNotifier delivers a formatted message to administrators. The core
// memory subsystem never implements a concrete transport for this; the
// out-of-core chat adapter supplies one.
type AdminNotifier interface {
	Notify(subject, detail string)
}

// ErrorHandler is the central error router: logs with structured context,
// resolves a user-visible message, and optionally notifies admins.
type ErrorHandler struct {
	Logger   *zap.Logger
	Detail   DetailLevel
	Notifier AdminNotifier
}

func NewErrorHandler(logger *zap.Logger, detail DetailLevel, notifier AdminNotifier) *ErrorHandler {
	return &ErrorHandler{Logger: logger, Detail: detail, Notifier: notifier}
}

// Handle logs err and returns the message that should be shown to the user.
func (h *ErrorHandler) Handle(err error) string {
	kind := KindOf(err)
	msg, ok := userMessages[kind]
	if !ok {
		msg = fallbackMessage
	}

	if h.Detail >= DetailBasic {
		h.Logger.Error("handled error", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		h.Logger.Warn("handled error", zap.String("kind", string(kind)))
	}

	if h.Detail >= DetailFull && h.Notifier != nil {
		h.Notifier.Notify(string(kind), err.Error())
	}

	return msg
}
