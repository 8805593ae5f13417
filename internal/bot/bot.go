package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	telebot "gopkg.in/telebot.v3"

	"ratewatcher/internal/engine"
	"ratewatcher/internal/rates"
)

const setRateHint = "You haven't set a rate yet. Use /setrate 0.12641."

// Bot wires the Telegram command surface to the evaluation engine.
type Bot struct {
	tb      *telebot.Bot
	engine  *engine.Engine
	logger  zerolog.Logger
	checkAt string
}

// New registers the command handlers on an existing telebot client. checkAt
// is the human-readable daily check time echoed in the /setrate confirmation.
func New(tb *telebot.Bot, eng *engine.Engine, checkAt string, logger zerolog.Logger) *Bot {
	b := &Bot{
		tb:      tb,
		engine:  eng,
		logger:  logger.With().Str("component", "bot").Logger(),
		checkAt: checkAt,
	}

	tb.Handle("/start", b.handleStart)
	tb.Handle("/setrate", b.handleSetRate)
	tb.Handle("/rate", b.handleRate)
	tb.Handle("/checknow", b.handleCheckNow)

	return b
}

// Start begins long polling. Blocks until Stop is called.
func (b *Bot) Start() {
	b.tb.Start()
}

// Stop ends long polling.
func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) handleStart(c telebot.Context) error {
	return c.Send("I track your electricity rate against EnergizeCT supplier offers.\n" +
		"/setrate 0.12641 — store your current rate\n" +
		"/rate — show your stored rate\n" +
		"/checknow — check the market right now")
}

func (b *Bot) handleSetRate(c telebot.Context) error {
	userID := senderID(c)
	guildID := int64(0)
	channelID := int64(0)
	if chat := c.Chat(); chat != nil {
		channelID = chat.ID
		if chat.Type == telebot.ChatGroup || chat.Type == telebot.ChatSuperGroup {
			guildID = chat.ID
		}
	}

	d, err := b.engine.SetRate(userID, channelID, guildID, strings.TrimSpace(c.Message().Payload))
	if err != nil {
		if rates.IsValidationError(err) {
			return c.Send("❌ " + capitalize(err.Error()))
		}
		b.logger.Error().Err(err).Str("user_id", userID).Msg("setrate failed")
		return c.Send("❌ Could not save your rate, try again later.")
	}

	return c.Send(fmt.Sprintf(
		"✅ Saved your current rate as %s $/kWh.\n"+
			"I'll check EnergizeCT daily at %s and ping you if a cheaper offer is available.",
		rates.Display(d), b.checkAt))
}

func (b *Bot) handleRate(c telebot.Context) error {
	userID := senderID(c)
	rate, ok, err := b.engine.StoredRate(userID)
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("rate lookup failed")
		return c.Send("❌ Could not read your stored rate, try again later.")
	}
	if !ok {
		return c.Send(setRateHint)
	}
	return c.Send(fmt.Sprintf("Your stored rate is %s $/kWh.", rate))
}

func (b *Bot) handleCheckNow(c telebot.Context) error {
	userID := senderID(c)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := b.engine.CheckNow(ctx, userID)
	if errors.Is(err, engine.ErrNoRate) {
		return c.Send(setRateHint)
	}
	if err != nil {
		return c.Send(fmt.Sprintf("❌ API check failed: %v", err))
	}

	msg := "Best current offer:\n" + engine.FormatOfferBlock(report.Best)
	userRate := rates.Display(report.UserRate)
	if report.CheaperRate != "" {
		msg += fmt.Sprintf("\n\n✅ Cheaper than your rate (%s): %s", userRate, report.CheaperRate)
	} else {
		msg += fmt.Sprintf("\n\nNo offer is cheaper than your rate (%s).", userRate)
	}
	return c.Send(msg)
}

func senderID(c telebot.Context) string {
	return strconv.FormatInt(c.Sender().ID, 10)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
