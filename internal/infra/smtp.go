package infra

import (
	"fmt"
	"net/smtp"
	"strings"

	"minimarket/internal/config"

	"github.com/jordan-wright/email"
)

// Mensaje is a plain-text (optionally HTML) notification email.
type Mensaje struct {
	Para   []string
	Asunto string
	Texto  string
	HTML   string
}

// Mailer sends notification emails over SMTP with PLAIN auth.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Configurado reports whether an SMTP host was provided.
func (m *Mailer) Configurado() bool { return m.host != "" }

// Enviar builds and sends one message.
func (m *Mailer) Enviar(msg Mensaje) error {
	if !m.Configurado() {
		return fmt.Errorf("mailer: SMTP_HOST no configurado")
	}
	if len(msg.Para) == 0 {
		return fmt.Errorf("mailer: sin destinatarios")
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = msg.Para
	e.Subject = msg.Asunto
	e.Text = []byte(msg.Texto)
	if strings.TrimSpace(msg.HTML) != "" {
		e.HTML = []byte(msg.HTML)
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.send(e, m.addr, auth)
}
