package factory

import (
	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/internal/credentials"
	"github.com/liquidnya/eventsource/pkg/errors"
)

// CreateCredentials creates the provider for credentialed streams, or nil
// when none is configured.
func CreateCredentials(cfg *config.Credentials) (credentials.Provider, error) {
	switch {
	case cfg.JWT != nil:
		signer, err := credentials.NewJWTSigner(cfg.JWT.ToJWTConfig())
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeBadRequest, "invalid jwt configuration").WithCause(err)
		}
		return signer, nil
	case cfg.BearerToken != "":
		return credentials.Bearer(cfg.BearerToken), nil
	default:
		return nil, nil
	}
}
