package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storyswap/storyswap-api/internal/config"
	"github.com/storyswap/storyswap-api/internal/events"
)

// NotificationService turns account events into outbound email/webhook
// sends. Delivery is stubbed: the send is logged with enough detail to plug
// a real provider in behind the same calls.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventEmailVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventEmailVerified, n.handleEmailVerified)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handleResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EmailVerificationRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	link := n.buildLink("/verify-email", payload.Token)
	n.sendEmailStub(ctx, payload.Email, "Verify your StorySwap email", link)
	return nil
}

func (n *NotificationService) handleEmailVerified(ctx context.Context, event events.Event) error {
	n.logger.Info("EmailVerified", zap.String("user_id", event.UserID))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	link := n.buildLink("/reset-password", payload.Token)
	n.sendEmailStub(ctx, payload.Email, "Reset your StorySwap password", link)
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("PasswordChanged", zap.String("user_id", event.UserID))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) buildLink(path, token string) string {
	base := strings.TrimRight(n.cfg.PublicBaseURL, "/")
	return fmt.Sprintf("%s%s?token=%s", base, path, token)
}

func (n *NotificationService) sendEmailStub(_ context.Context, to, subject, link string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	// Token value stays out of the log line.
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("link_length", len(link)))
}

func (n *NotificationService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}
