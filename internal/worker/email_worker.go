package worker

import (
	"context"
	"encoding/json"
	"strings"

	"minimarket/internal/infra"

	"github.com/rs/zerolog/log"
)

// AlertaEmailPayload is the job body sent to QueueAlertasEmail.
type AlertaEmailPayload struct {
	Para   []string `json:"para"`
	Asunto string   `json:"asunto"`
	Texto  string   `json:"texto"`
}

// Enviador is satisfied by *infra.Mailer.
type Enviador interface {
	Enviar(msg infra.Mensaje) error
}

// EmailWorker sends alert emails through SMTP behind a circuit breaker, so a
// downed mail server fails fast instead of stalling every worker.
type EmailWorker struct {
	mailer Enviador
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(mailer Enviador, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb}
}

// Process is a Procesador for JobAlertaEmail. Malformed payloads are
// dropped without retrying.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload AlertaEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if len(payload.Para) == 0 {
		log.Warn().Msg("email_worker: sin destinatarios, se descarta")
		return nil
	}

	msg := infra.Mensaje{Para: payload.Para, Asunto: payload.Asunto, Texto: payload.Texto}
	err := w.cb.Execute(func() error { return w.mailer.Enviar(msg) })
	if err != nil {
		log.Error().Err(err).Str("to", strings.Join(payload.Para, ",")).Msg("email_worker: envio fallido")
		return err
	}
	log.Info().Str("to", strings.Join(payload.Para, ",")).Str("asunto", payload.Asunto).Msg("email_worker: alerta enviada")
	return nil
}
