package cli

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
)

// HandleRunError logs a failed run with guidance for the error's kind. The
// caller decides the exit status once its resources are released.
func HandleRunError(err error) {
	var (
		providerErr   *apierr.ProviderError
		credentialErr *apierr.CredentialInvalidError
		emptyErr      *apierr.EmptyResultError
	)
	switch {
	case errors.As(err, &providerErr):
		switch providerErr.Kind {
		case apierr.ProfilePrivate:
			log.Error().Int("code", providerErr.Code).Msg(providerErr.Error())
		case apierr.CredentialInvalid:
			log.Error().Int("code", providerErr.Code).Msg("VK rejected the access token. Check VK_ACCESS_TOKEN or vk.token_param")
		case apierr.IdentityInvalid:
			log.Error().Int("code", providerErr.Code).Msg("VK user ID is invalid. Pass the numeric ID with --owner")
		default:
			log.Error().Int("code", providerErr.Code).Str("message", providerErr.Message).Msg("VK API error")
		}
	case errors.As(err, &credentialErr):
		log.Error().Int("statusCode", credentialErr.StatusCode).Msg("Yandex.Disk rejected the token. Pass a valid OAuth token with --yandex-token")
	case errors.As(err, &emptyErr):
		log.Error().Str("ownerId", emptyErr.OwnerID).Msg("No profile photos found for this user")
	default:
		log.Error().Err(err).Str("kind", apierr.Kind(err)).Msg(apierr.UserMessage(err))
	}
}
