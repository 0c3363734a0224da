package telegram

import (
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/scanner"
	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// Config holds the notifier settings.
type Config struct {
	BotToken  string
	ChannelID string
}

// Notifier pushes newly appearing candidates to a Telegram channel. Symbols
// already announced stay muted until they drop out of the candidate set.
type Notifier struct {
	bot       *tgbotapi.BotAPI
	channelID string

	mu        sync.Mutex
	announced map[string]struct{}
}

// NewNotifier initializes the Telegram bot for the given channel.
func NewNotifier(cfg Config) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot initialized")
	return &Notifier{
		bot:       bot,
		channelID: cfg.ChannelID,
		announced: map[string]struct{}{},
	}, nil
}

// Notify sends one message covering the candidates not yet announced. Safe
// to call from the producer goroutine after every ingest.
func (n *Notifier) Notify(rows []types.CandidateRow) {
	n.mu.Lock()
	fresh := make([]types.CandidateRow, 0, len(rows))
	current := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		current[row.Symbol] = struct{}{}
		if _, seen := n.announced[row.Symbol]; !seen {
			fresh = append(fresh, row)
		}
	}
	n.announced = current
	n.mu.Unlock()

	if len(fresh) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("📊 New candidates\n")
	for _, row := range scanner.FormatRows(fresh) {
		fmt.Fprintf(&b, "%s  LD %s  HD %s  Profit %s\n", row.Symbol, row.LD, row.HD, row.Profit)
	}

	msg := tgbotapi.NewMessageToChannel(n.channelID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
		return
	}
	log.Info().Int("count", len(fresh)).Str("channel", n.channelID).
		Msg("Sent candidate alert")
}
