package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/mailer"
	pkgkafka "github.com/k1nderko/goit-pythonweb-hw-12/pkg/kafka"
)

// ConsumerGroupID identifies the in-process mail consumer group.
const ConsumerGroupID = "contacts-mailer"

// MailHandler consumes user events and sends the corresponding emails.
type MailHandler struct {
	sender  mailer.Sender
	baseURL string
	logger  *slog.Logger
}

// NewMailHandler creates a mail consumer handler. baseURL is the public base
// URL used to build links embedded in the mails.
func NewMailHandler(sender mailer.Sender, baseURL string, logger *slog.Logger) *MailHandler {
	return &MailHandler{
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *MailHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicUserRegistered:
		return h.handleUserRegistered(ctx, event)
	case TopicUserVerificationRequested:
		return h.handleVerificationRequested(ctx, event)
	case TopicUserPasswordReset:
		return h.handlePasswordReset(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *MailHandler) handleUserRegistered(ctx context.Context, event *pkgkafka.Event) error {
	var data UserRegisteredData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal user.registered data: %w", err)
	}

	msg := &mailer.Message{
		To:      data.Email,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWelcome! Please confirm your email address by following this link:\n\n%s\n\nThe link expires in 24 hours. If you did not create an account, ignore this message.\n",
			data.FirstName,
			h.verificationLink(data.VerificationToken),
		),
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	h.logger.InfoContext(ctx, "verification mail sent",
		slog.String("user_id", data.ID),
		slog.String("email", data.Email),
	)

	return nil
}

func (h *MailHandler) handleVerificationRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data UserVerificationRequestedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal user.verification_requested data: %w", err)
	}

	msg := &mailer.Message{
		To:      data.Email,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf(
			"Please confirm your email address by following this link:\n\n%s\n\nThe link expires in 24 hours.\n",
			h.verificationLink(data.VerificationToken),
		),
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	h.logger.InfoContext(ctx, "verification mail re-sent",
		slog.String("user_id", data.UserID),
		slog.String("email", data.Email),
	)

	return nil
}

func (h *MailHandler) handlePasswordReset(ctx context.Context, event *pkgkafka.Event) error {
	var data UserPasswordResetData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal user.password_reset data: %w", err)
	}

	msg := &mailer.Message{
		To:      data.Email,
		Subject: "Password reset request",
		Body: fmt.Sprintf(
			"A password reset was requested for your account. Use this token with the reset endpoint, or follow the link:\n\n%s\n\nThe link expires in 1 hour. If you did not request a reset, ignore this message and your password will stay unchanged.\n",
			h.resetLink(data.ResetToken),
		),
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}

	h.logger.InfoContext(ctx, "password reset mail sent",
		slog.String("user_id", data.UserID),
		slog.String("email", data.Email),
	)

	return nil
}

func (h *MailHandler) verificationLink(token string) string {
	return fmt.Sprintf("%s/api/v1/auth/verify/%s", h.baseURL, token)
}

func (h *MailHandler) resetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", h.baseURL, token)
}

// NewConsumers creates Kafka consumers for all mail-relevant topics.
func NewConsumers(brokers []string, handler *MailHandler, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicUserRegistered,
		TopicUserVerificationRequested,
		TopicUserPasswordReset,
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  ConsumerGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}

		consumers = append(consumers, pkgkafka.NewConsumer(cfg, handler.Handle, logger))
	}

	return consumers
}
