package services

import (
	"context"
	"fmt"
	"time"

	"bankcards/config"
	"bankcards/models"
	"bankcards/utils"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

// NopNotifier ничего не отправляет
type NopNotifier struct{}

func (NopNotifier) CardBlocked(context.Context, CardView) {}

func (NopNotifier) TransferCompleted(context.Context, CardView, CardView, decimal.Decimal) {}

// Recipients ищет адрес владельца карты
type Recipients interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Sender отправляет готовое письмо
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService отправляет владельцам карт уведомления о блокировке и переводах.
// Письма уходят в фоне и не задерживают операцию; ошибки только логируются.
type EmailService struct {
	sender     Sender
	from       string
	recipients Recipients
	timeout    time.Duration
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg config.SMTPConfig, recipients Recipients) *EmailService {
	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &EmailService{
		sender:     dialer,
		from:       cfg.From,
		recipients: recipients,
		timeout:    30 * time.Second,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// CardBlocked уведомляет владельца о блокировке карты
func (s *EmailService) CardBlocked(ctx context.Context, card CardView) {
	subject := "Карта заблокирована"
	body := fmt.Sprintf(`
		<h2>Карта заблокирована</h2>
		<p>Карта: %s</p>
		<p>Дата: %s</p>
	`, card.Number, time.Now().Format("02.01.2006 15:04:05"))

	s.deliver(ctx, card.OwnerID, subject, body)
}

// TransferCompleted уведомляет владельца о переводе между картами
func (s *EmailService) TransferCompleted(ctx context.Context, from, to CardView, amount decimal.Decimal) {
	subject := "Перевод между картами"
	body := fmt.Sprintf(`
		<h2>Перевод выполнен</h2>
		<p>Списано с карты: %s</p>
		<p>Зачислено на карту: %s</p>
		<p>Сумма: %s</p>
		<p>Остаток: %s</p>
		<p>Дата: %s</p>
	`, from.Number, to.Number, amount.StringFixed(2), from.Balance.StringFixed(2), time.Now().Format("02.01.2006 15:04:05"))

	s.deliver(ctx, from.OwnerID, subject, body)
}

func (s *EmailService) deliver(ctx context.Context, ownerID uint, subject, body string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		user, err := s.recipients.GetUserByID(ctx, ownerID)
		if err != nil {
			utils.LogError("failed to resolve notification recipient %d: %v", ownerID, err)
			return
		}
		if err := s.SendEmail(user.Email, subject, body); err != nil {
			utils.LogError("failed to send notification: %v", err)
		}
	}()
}
