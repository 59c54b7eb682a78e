// Package poller runs the homework status polling loop: it fetches status
// changes, validates and translates them, and delivers one chat message per
// homework. Supervisor owns the loop, Cycle runs a single poll.
package poller

import (
	"encoding/hex"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREDENTIALS
// ══════════════════════════════════════════════════════════════════════════════

// Credentials are the three secrets the notifier cannot run without.
// The env tag names the variable each value is read from.
type Credentials struct {
	EndpointToken string `env:"PRACTICUM_TOKEN" validate:"required"`
	NotifierToken string `env:"TELEGRAM_TOKEN" validate:"required"`
	ChannelID     string `env:"TELEGRAM_CHAT_ID" validate:"required"`
}

// validate is initialised once; tag-name registration must happen before first use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Missing returns the environment variable names of absent credentials,
// in declaration order.
func (c Credentials) Missing() []string {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	names := make([]string, 0, len(ve))
	for _, fe := range ve {
		names = append(names, fe.Field())
	}
	return names
}

// Validate fails with shared.ErrMissingCredentials naming every absent value.
// A value consisting only of whitespace counts as absent.
func (c Credentials) Validate() error {
	trimmed := Credentials{
		EndpointToken: strings.TrimSpace(c.EndpointToken),
		NotifierToken: strings.TrimSpace(c.NotifierToken),
		ChannelID:     strings.TrimSpace(c.ChannelID),
	}

	missing := trimmed.Missing()
	if len(missing) == 0 {
		return nil
	}
	return shared.NewDomainError("poller", "CheckCredentials", shared.ErrMissingCredentials,
		"required environment variables are not set: "+strings.Join(missing, ", "))
}

// Fingerprint returns a short non-reversible digest of a secret so startup
// logs can show which token is in use without leaking it.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}
