package notify

import (
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/salonqueue/libs/config"
)

// SenderFromEnv picks the provider from EMAIL_PROVIDER (resend, smtp or log).
func SenderFromEnv(logger *slog.Logger) Sender {
	from := config.String("EMAIL_FROM", "Salon Queue <onboarding@resend.dev>")
	switch strings.ToLower(config.String("EMAIL_PROVIDER", "log")) {
	case "resend":
		return NewResendSender(config.String("RESEND_BASE_URL", ""), config.String("RESEND_API_KEY", ""), from)
	case "smtp":
		return NewSMTPSender(config.String("SMTP_HOST", "mailpit"), config.String("SMTP_PORT", "1025"), from)
	default:
		return LogSender{Log: logger.Warn}
	}
}
