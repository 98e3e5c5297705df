// Package sender содержит сервис отправки email-уведомлений: покупка подписки,
// окончание подписки, сброс пароля и сообщения из формы обратной связи.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/flagship-content/internal/lib/sl"
	"github.com/magabrotheeeer/flagship-content/internal/lib/smtp"
	"github.com/magabrotheeeer/flagship-content/internal/models"
	"github.com/magabrotheeeer/flagship-content/internal/services/payment"
)

// Service читает сообщения очередей уведомлений и отправляет письма по SMTP.
type Service struct {
	transport    smtp.TransportInterface
	log          *slog.Logger
	contactEmail string
}

// New создает новый экземпляр Service. contactEmail — адрес, на который
// пересылаются сообщения из формы обратной связи.
func New(log *slog.Logger, transport smtp.TransportInterface, contactEmail string) *Service {
	return &Service{
		transport:    transport,
		log:          log,
		contactEmail: contactEmail,
	}
}

// SendPurchaseConfirmation отправляет подтверждение оплаты подписки.
func (s *Service) SendPurchaseConfirmation(body []byte) error {
	var message models.PurchaseNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	plan := message.PlanID
	if p, ok := payment.Plans[message.PlanID]; ok {
		plan = p.Name
	}

	to := []string{message.Email}
	subject := "Your subscription is active"
	bodyText := fmt.Sprintf("Hello %s!\n\nThank you for your purchase. Your %s (INR %.2f) is now active.\n\nYou have full access to all premium articles.",
		message.Name, plan, float64(message.Amount)/100)

	return s.sendEmail(to, subject, bodyText)
}

// SendExpiryNotice отправляет уведомление об окончании подписки.
func (s *Service) SendExpiryNotice(body []byte) error {
	var message models.ExpiryNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Your subscription has expired"
	bodyText := fmt.Sprintf("Hello %s!\n\nYour subscription has expired. Premium articles are no longer available in full.\n\nYou can renew at any time from your account page.",
		message.Name)

	return s.sendEmail(to, subject, bodyText)
}

// SendPasswordReset отправляет письмо со ссылкой для сброса пароля.
func (s *Service) SendPasswordReset(body []byte) error {
	var message models.PasswordResetNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Password reset request"
	bodyText := fmt.Sprintf("Hello %s!\n\nWe received a request to reset your password. Follow the link below to choose a new one:\n\n%s\n\nThe link is valid for one hour. If you did not request a reset, ignore this email.",
		message.Name, message.Link)

	return s.sendEmail(to, subject, bodyText)
}

// SendContactMessage пересылает сообщение из формы обратной связи
// на служебный адрес.
func (s *Service) SendContactMessage(body []byte) error {
	var message models.ContactMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{s.contactEmail}
	subject := "New contact form message from " + message.Name
	lines := []string{
		"Name: " + message.Name,
		"Email: " + message.Email,
	}
	if message.WhatsApp != "" {
		lines = append(lines, "WhatsApp: "+message.WhatsApp)
	}
	lines = append(lines, "", message.Message)

	return s.sendEmail(to, subject, strings.Join(lines, "\n"))
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
