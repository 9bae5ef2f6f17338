package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	pkgkafka "github.com/k1nderko/goit-pythonweb-hw-12/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserRegistered            = "contacts.user.registered"
	TopicUserVerificationRequested = "contacts.user.verification_requested"
	TopicUserPasswordReset         = "contacts.user.password_reset"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceContactsAPI = "contacts-api"

// UserRegisteredData is the payload for a user.registered event. It carries
// the verification token so the mail consumer can build the activation link.
type UserRegisteredData struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	VerificationToken string `json:"verification_token"`
}

// UserVerificationRequestedData is the payload for a
// user.verification_requested event.
type UserVerificationRequestedData struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

// UserPasswordResetData is the payload for a user.password_reset event.
type UserPasswordResetData struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// Publisher is the interface the service layer uses to emit user events.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User, verificationToken string) error
	PublishUserVerificationRequested(ctx context.Context, user *domain.User, verificationToken string) error
	PublishUserPasswordReset(ctx context.Context, user *domain.User, resetToken string) error
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User, verificationToken string) error {
	data := UserRegisteredData{
		ID:                user.ID,
		Email:             user.Email,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		VerificationToken: verificationToken,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceContactsAPI, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserVerificationRequested publishes a user.verification_requested event.
func (p *Producer) PublishUserVerificationRequested(ctx context.Context, user *domain.User, verificationToken string) error {
	data := UserVerificationRequestedData{
		UserID:            user.ID,
		Email:             user.Email,
		VerificationToken: verificationToken,
	}

	event, err := pkgkafka.NewEvent(TopicUserVerificationRequested, user.ID, AggregateTypeUser, SourceContactsAPI, data)
	if err != nil {
		return fmt.Errorf("create user.verification_requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserVerificationRequested, event); err != nil {
		return fmt.Errorf("publish user.verification_requested event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.verification_requested event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishUserPasswordReset(ctx context.Context, user *domain.User, resetToken string) error {
	data := UserPasswordResetData{
		UserID:     user.ID,
		Email:      user.Email,
		ResetToken: resetToken,
	}

	event, err := pkgkafka.NewEvent(TopicUserPasswordReset, user.ID, AggregateTypeUser, SourceContactsAPI, data)
	if err != nil {
		return fmt.Errorf("create user.password_reset event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserPasswordReset, event); err != nil {
		return fmt.Errorf("publish user.password_reset event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.password_reset event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}
