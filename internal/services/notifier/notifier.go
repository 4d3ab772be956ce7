// Package notifier рассылает администраторам письма о подписке и оплатах
// по событиям из очередей уведомлений.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/lib/smtp"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/services/payment"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

// AdminReader находит администратора вместе с его email.
type AdminReader interface {
	AdminByID(ctx context.Context, adminID string) (*models.Admin, error)
}

// Service отправляет письма.
type Service struct {
	transport smtp.TransportInterface
	admins    AdminReader
	log       *slog.Logger
}

// New создаёт Service.
func New(log *slog.Logger, transport smtp.TransportInterface, admins AdminReader) *Service {
	return &Service{
		transport: transport,
		admins:    admins,
		log:       log,
	}
}

func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrReject, err)
	}
	return nil
}

// recipient возвращает email из события или ищет его по администратору.
func (s *Service) recipient(ctx context.Context, op, email, adminID string) (string, error) {
	if email != "" {
		return email, nil
	}
	a, err := s.admins.AdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: admin %s: %w", op, adminID, rabbitmq.ErrReject)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return a.Email, nil
}

// SubscriptionExpiring обрабатывает subscription.expiring.
func (s *Service) SubscriptionExpiring(ctx context.Context, body []byte) error {
	const op = "notifier.SubscriptionExpiring"

	var n models.SubscriptionNotice
	if err := decode(op, body, &n); err != nil {
		return err
	}
	to, err := s.recipient(ctx, op, n.Email, n.AdminID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Olá!\n\nSua assinatura termina em %s.\n\n"+
		"Renove antes dessa data para continuar publicando treinos e produtos.",
		n.EndDate.Format("02/01/2006"))
	return s.sendEmail(ctx, to, "Sua assinatura está terminando", text)
}

// SubscriptionExpired обрабатывает subscription.expired.
func (s *Service) SubscriptionExpired(ctx context.Context, body []byte) error {
	const op = "notifier.SubscriptionExpired"

	var n models.SubscriptionNotice
	if err := decode(op, body, &n); err != nil {
		return err
	}
	to, err := s.recipient(ctx, op, n.Email, n.AdminID)
	if err != nil {
		return err
	}
	text := "Olá!\n\nSua assinatura expirou. O catálogo continua visível, " +
		"mas alterações ficam bloqueadas até a renovação."
	return s.sendEmail(ctx, to, "Sua assinatura expirou", text)
}

// Payment обрабатывает событие об оплате. Письмо уходит только при изменении
// подписки администратора; оплаты заказов покупателей пропускаются.
func (s *Service) Payment(ctx context.Context, body []byte) error {
	const op = "notifier.Payment"

	var e payment.Event
	if err := decode(op, body, &e); err != nil {
		return err
	}
	if e.AdminID == "" || e.SubscriptionStatus == "" {
		return nil
	}
	to, err := s.recipient(ctx, op, "", e.AdminID)
	if err != nil {
		return err
	}

	var subject, text string
	switch models.SubscriptionStatus(e.SubscriptionStatus) {
	case models.SubscriptionActive:
		subject = "Pagamento confirmado"
		text = fmt.Sprintf("Olá!\n\nRecebemos o pagamento do pedido %s. Sua assinatura está ativa.", e.OrderID)
	default:
		subject = "Atualização da assinatura"
		text = fmt.Sprintf("Olá!\n\nO pedido %s mudou para %q. Status da assinatura: %s.",
			e.OrderID, e.Status, e.SubscriptionStatus)
	}
	return s.sendEmail(ctx, to, subject, text)
}

func (s *Service) sendEmail(ctx context.Context, to, subject, bodyText string) error {
	const op = "notifier.sendEmail"
	log := s.log.With(sl.Op(op), slog.String("to", to))

	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Date: " + time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("%s: rcpt to: %w", op, err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close body: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		log.Warn("smtp quit failed", sl.Err(err))
	}

	log.Info("email sent")
	return nil
}
