package impl

import (
	"context"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/domain/service"
	"subskit/transport"
	"subskit/usecase"
)

type userService struct {
	api         transport.API
	repo        repository.StateRepository
	credentials service.CredentialVerifier
	config      *config.Config
	logger      *slog.Logger
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	API         transport.API
	Repo        repository.StateRepository
	Credentials service.CredentialVerifier `optional:"true"`
	Config      *config.Config
	Logger      *slog.Logger
}

// NewUserService creates the account registration service.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	return &userService{
		api:         params.API,
		repo:        params.Repo,
		credentials: params.Credentials,
		config:      params.Config,
		logger:      params.Logger,
	}
}

func (s *userService) Refresh(ctx context.Context) error {
	account, err := s.repo.UserAccount()
	if err != nil || account == nil {
		s.logger.Warn("no stored account to refresh")

		return apierror.New(apierror.KindBadParameters)
	}

	return s.Register(ctx, *account, false)
}

func (s *userService) Register(ctx context.Context, account entity.UserAccount, sendConfirmation bool) error {
	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return apierror.New(apierror.KindBadParameters)
	}
	account.DeviceKey = identity.Key
	liftIdentityClaims(&account)

	params := map[string]any{
		"device_id":     identity.Key,
		"bundle_id":     s.config.App.BundleID,
		"signin_source": account.Source.String(),
	}
	switch account.Source {
	case entity.RegistrationSourceEmailLink:
		if account.Email != "" {
			params["user_id"] = account.Email
			params["email"] = account.Email
		}
		if account.DisplayName != "" {
			params["profile_name"] = account.DisplayName
		}
		confirmation := 0
		if sendConfirmation {
			confirmation = 1
		}
		params["send_confirmation"] = confirmation
	case entity.RegistrationSourceAppleID:
		if account.AuthCode != "" {
			params["auth_code"] = account.AuthCode
		}
	case entity.RegistrationSourceNone:
	}

	envelope, err := s.api.SendSigned(ctx, transport.EndpointSignInUser, params)
	if err != nil {
		s.logger.Error("user registration failed", slog.Any("error", err))

		return err
	}

	// Only the email-link flow carries verification state back.
	if account.Source == entity.RegistrationSourceEmailLink {
		if data, ok := envelope["data"].(map[string]any); ok {
			if verified, ok := data["email_verified"].(bool); ok {
				account.IsVerified = verified
				if !verified {
					if expirationMs, ok := data["before_expiration_ms"].(float64); ok {
						account.ConfirmationPending = expirationMs > 0
					}
				}
			}
		}
	}
	if err := s.repo.SaveUserAccount(account); err != nil {
		return apierror.Wrap(apierror.KindOther, err)
	}

	return nil
}

func (s *userService) Logout(ctx context.Context) error {
	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return apierror.New(apierror.KindBadParameters)
	}

	_, err = s.api.SendSigned(ctx, transport.EndpointLogout, map[string]any{
		"device_id": identity.Key,
		"bundle_id": s.config.App.BundleID,
	})
	if err != nil {
		s.logger.Error("logout failed", slog.Any("error", err))
	}

	return err
}

func (s *userService) DeleteUser(ctx context.Context) error {
	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return apierror.New(apierror.KindBadParameters)
	}

	_, err = s.api.SendSigned(ctx, transport.EndpointDeleteUser, map[string]any{
		"dev_id": identity.Key,
	})

	return err
}

// CheckCredential consults the credential provider. A revoked or unknown
// credential wipes the local account and detaches the device, the same
// cleanup an explicit logout performs.
func (s *userService) CheckCredential(ctx context.Context, userID string) error {
	if s.credentials == nil {
		return apierror.New(apierror.KindOther)
	}

	state, err := s.credentials.State(ctx, userID)
	if err != nil {
		return apierror.Wrap(apierror.KindOther, err)
	}

	switch state {
	case service.CredentialAuthorized:
		return nil
	case service.CredentialRevoked, service.CredentialNotFound:
		if err := s.repo.DeleteUserAccount(); err != nil {
			s.logger.Error("deleting local account failed", slog.Any("error", err))
		}
		if err := s.Logout(ctx); err != nil {
			s.logger.Warn("logout during credential cleanup failed", slog.Any("error", err))
		}

		return apierror.New(apierror.KindCredentialExpired)
	default:
		return apierror.New(apierror.KindOther)
	}
}

// liftIdentityClaims fills missing account fields from the provider's
// identity token. The token is decoded without signature verification; it
// only seeds display fields, never authorization.
func liftIdentityClaims(account *entity.UserAccount) {
	if account.IdentityToken == "" {
		return
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(account.IdentityToken, claims); err != nil {
		return
	}
	if account.Email == "" {
		if email, ok := claims["email"].(string); ok {
			account.Email = email
		}
	}
	if account.DisplayName == "" {
		if name, ok := claims["name"].(string); ok {
			account.DisplayName = name
		}
	}
}
