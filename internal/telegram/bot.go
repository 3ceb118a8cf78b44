package telegram

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"petfoodverifai/internal/config"
	"petfoodverifai/internal/metrics"
)

const messageTimeout = 2 * time.Minute

// UsageReporter reads LLM usage for the admin report.
type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot wraps the Telegram API and routes chat messages to the analyze flow.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	flow     *Flow
	usage    UsageReporter
	cfg      *config.Config
	dataPath string
	logger   *zap.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, api *tgbotapi.BotAPI, flow *Flow, usage UsageReporter, logger *zap.Logger) (*Bot, error) {
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("description", resp.Description))

	b := newBot(cfg, api, flow, usage, logger)
	b.api = api
	return b, nil
}

func newBot(cfg *config.Config, sender Sender, flow *Flow, usage UsageReporter, logger *zap.Logger) *Bot {
	return &Bot{
		sender:   sender,
		flow:     flow,
		usage:    usage,
		cfg:      cfg,
		dataPath: filepath.Dir(cfg.DatabasePath),
		logger:   logger,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		return
	}
	if update.Message == nil {
		return
	}
	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	if len(b.cfg.TelegramAllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.isAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName),
		)
		return
	}

	if command(msg.Text) == "metrics" {
		b.handleMetricsRequest(msg)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()
	b.flow.Handle(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.sender.Send(tgbotapi.NewMessage(msg.Chat.ID, "⛔ Access denied: admin only."))
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to fetch usage", zap.Error(err))
		b.sender.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatUsageReport(usage, metrics.GetSysHealth(b.dataPath)))
	msg.ParseMode = "Markdown"
	b.sender.Send(msg)
}

func formatUsageReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d analyses)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
