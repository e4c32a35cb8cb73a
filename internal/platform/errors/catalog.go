package errors

import (
	"bytes"
	"sync"
	"text/template"

	"golang.org/x/text/language"
)

// BaseLocale is the fallback locale for user-facing messages.
const BaseLocale = "en-US"

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

var (
	catalogsMu sync.RWMutex
	catalogs   = map[string]*Catalog{BaseLocale: NewCatalog(BaseLocale, enUSMessages)}
)

// GetCatalog returns the best matching catalog for locale, falling back to en-US.
func GetCatalog(locale string) *Catalog {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()

	if c, ok := catalogs[locale]; ok {
		return c
	}
	tags := make([]language.Tag, 0, len(catalogs))
	names := make([]string, 0, len(catalogs))
	tags = append(tags, language.MustParse(BaseLocale))
	names = append(names, BaseLocale)
	for name := range catalogs {
		if name == BaseLocale {
			continue
		}
		tag, err := language.Parse(name)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		names = append(names, name)
	}
	_, index, confidence := language.NewMatcher(tags).Match(language.Make(locale))
	if confidence == language.No {
		return catalogs[BaseLocale]
	}
	return catalogs[names[index]]
}

// RegisterCatalog registers a catalog for its locale.
func RegisterCatalog(cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[cat.locale] = cat
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned}
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the code itself if no template is found.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return string(code)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	t, err := template.New("msg").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

var enUSMessages = map[Code]string{
	CodeAlreadyInitialized:  "The arena is already configured.",
	CodeNotInitialized:      "The arena has not been configured yet.",
	CodeInvalidFeeRate:      "Fee rate {{.fee_rate_bps}} exceeds 10000 basis points.",
	CodeInvalidCurrency:     "A stake currency is required.",
	CodeNotTurn:             "You already submitted a move this round.",
	CodeTaskNotCompleted:    "The previous step has not completed.",
	CodeNotAParticipant:     "You are not playing in this session.",
	CodeAlreadyJoined:       "This session already has an opponent.",
	CodeCreatorCannotJoin:   "You cannot join your own session.",
	CodeAwaitingOpponent:    "The session is waiting for an opponent.",
	CodeSessionTerminal:     "The session is over.",
	CodeIncompleteTurn:      "Both players must move before the round resolves.",
	CodeInvalidTotalHealth:  "Total health must be greater than zero.",
	CodeInvalidPoolAmount:   "The stake must be greater than zero.",
	CodeInvalidMove:         "Unknown move {{.move}}.",
	CodeActiveSessionExists: "You already have an open session.",
	CodeRoundMismatch:       "The move is for round {{.round}} but the session is on round {{.current_round}}.",
	CodeNotTimedOut:         "The round has not timed out yet.",
	CodeInvalidForceResolve: "This round cannot be force resolved.",
	CodeGameNotOver:         "The game is not over.",
	CodeNotWinner:           "Only the winner can claim the reward.",
	CodeRewardNotClaimed:    "Claim your previous reward before creating a session.",
	CodeAlreadyClaimed:      "The reward was already claimed.",
	CodeInsufficientFunds:   "Account {{.account_id}} has insufficient funds.",
	CodeCurrencyMismatch:    "Account {{.account_id}} holds a different currency.",
	CodeAccountNotOwned:     "Account {{.account_id}} is not owned by the caller.",
	CodeInvalidAmount:       "The amount must be greater than zero.",
	CodeAmountOverflow:      "The amount overflows the account balance.",
	CodeUnauthorized:        "The request is not authorized.",
	CodeInvalidIdentity:     "The identity is not a valid public key.",
	CodeReplayedRequest:     "This signed request was already used.",
	CodeNotFound:            "{{.resource}} not found.",
}
