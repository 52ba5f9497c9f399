package notify

import (
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

const inviteSubject = "Friend request"

var inviteTemplate = template.Must(template.New("invite").Parse(`Hi there,<br/><br/>
{{.Inviter}} would like to invite you to be their friend<br/><br/>
<a style="text-decoration:none;padding:15px;background-color:green;color:white;border-radius:3px;"
href="{{.AcceptURL}}">Accept Request</a>`))

// Invite is one friend-request email.
type Invite struct {
	Inviter   string
	To        string
	AcceptURL string
}

// Sender delivers an invite. SMTPSender is the production implementation.
type Sender interface {
	Send(ctx context.Context, inv Invite) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, inv Invite) error {
	msg := gomail.NewMsg()
	from := s.cfg.From
	if from == "" {
		from = inv.Inviter
	}
	if err := msg.From(from); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := msg.To(inv.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	replyTo := s.cfg.ReplyTo
	if replyTo == "" && from != inv.Inviter {
		replyTo = inv.Inviter
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return fmt.Errorf("reply-to: %w", err)
		}
	}
	msg.Subject(inviteSubject)
	if err := msg.SetBodyHTMLTemplate(inviteTemplate, inv); err != nil {
		return fmt.Errorf("body: %w", err)
	}

	opts := []gomail.Option{gomail.WithPort(s.cfg.Port), gomail.WithTLSPolicy(gomail.TLSMandatory)}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogSender only logs. Used when SMTP is not configured.
type LogSender struct {
	Log zerolog.Logger
}

func (l LogSender) Send(_ context.Context, inv Invite) error {
	l.Log.Info().Str("to", inv.To).Str("inviter", inv.Inviter).Msg("invite not sent: smtp not configured")
	return nil
}

// Mailer sends invites in the background. Callers get a buffered result
// channel they are free to ignore; failures are always logged.
type Mailer struct {
	Sender  Sender
	BaseURL string
	Timeout time.Duration
	Log     zerolog.Logger
}

func NewMailer(sender Sender, baseURL string, log zerolog.Logger) *Mailer {
	return &Mailer{
		Sender:  sender,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 30 * time.Second,
		Log:     log,
	}
}

// SendInvite validates the addresses synchronously and delivers in a goroutine.
// The returned channel yields exactly one value and is then closed.
func (m *Mailer) SendInvite(inviter, to string) <-chan error {
	result := make(chan error, 1)

	to = strings.TrimSpace(to)
	if _, err := mail.ParseAddress(to); err != nil {
		result <- fmt.Errorf("invite address %q: %w", to, domain.ErrInvalidArgument)
		close(result)
		return result
	}

	inv := Invite{
		Inviter:   inviter,
		To:        to,
		AcceptURL: m.BaseURL + "/login",
	}

	go func() {
		defer close(result)
		ctx, cancel := context.WithTimeout(context.Background(), m.Timeout)
		defer cancel()

		err := m.Sender.Send(ctx, inv)
		if err != nil {
			m.Log.Error().Err(err).Str("to", inv.To).Str("inviter", inv.Inviter).Msg("invite send failed")
		} else {
			m.Log.Debug().Str("to", inv.To).Msg("invite sent")
		}
		result <- err
	}()
	return result
}
