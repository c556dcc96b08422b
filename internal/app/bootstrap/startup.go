// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/timeouts"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if appCfg.DirectorEmail != "" {
		if err := ensureDirector(ctx, deps, appCfg.DirectorEmail, appCfg.DirectorPassword, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureDirector guarantees a usable director account so a fresh install
// is never locked out of user administration. An existing account is
// promoted and reactivated; a missing one is created with the configured
// bootstrap password.
func ensureDirector(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role == authz.RoleDirector && existing.Active {
			return nil
		}
		if err := users.Apply(ctx, existing.ID, userstore.Update{
			Email:     existing.Email,
			FirstName: existing.FirstName,
			LastName:  existing.LastName,
			FullName:  existing.FullName,
			Role:      authz.RoleDirector,
		}); err != nil {
			return fmt.Errorf("promote director account: %w", err)
		}
		if err := users.SetActive(ctx, existing.ID, true); err != nil {
			return fmt.Errorf("reactivate director account: %w", err)
		}
		logger.Info("promoted existing account to director",
			zap.String("email", email))
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("look up director account: %w", err)
	}

	if password == "" {
		logger.Warn("director account does not exist and director_password is unset; skipping creation",
			zap.String("email", email))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash director password: %w", err)
	}

	u, err := users.Create(ctx, models.User{
		Email:        email,
		FirstName:    "Director",
		Role:         authz.RoleDirector,
		Active:       true,
		PasswordHash: string(hash),
	})
	if err != nil {
		return fmt.Errorf("create director account: %w", err)
	}

	logger.Info("created director account",
		zap.String("email", email),
		zap.String("user_id", u.ID.Hex()))
	return nil
}
