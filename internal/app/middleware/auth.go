package middlware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appContext "github.com/avetisov/investline/internal/app/context"
	"github.com/avetisov/investline/internal/app/handlers"
	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/service"
)

type AuthMiddleware struct {
	tokenService   service.TokenService
	userService    service.UserService
	contextTimeout time.Duration
}

func NewAuthMiddleware(tokenService service.TokenService, userService service.UserService, contextTimeoutSec int) AuthMiddleware {
	return AuthMiddleware{
		tokenService:   tokenService,
		userService:    userService,
		contextTimeout: time.Duration(contextTimeoutSec) * time.Second,
	}
}

func (am *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), am.contextTimeout)
		defer cancel()

		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, "Bearer ")
		if len(parts) != 2 {
			handlers.WriteJSONErrorResponse(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}
		token := parts[1]

		userLogin, err := am.tokenService.GetUserLogin(token)
		if err != nil {
			logger.Log.Error("failed to get user login", zap.Error(err))
			handlers.WriteJSONErrorResponse(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := am.userService.GetByUserLogin(ctx, userLogin)
		if err != nil {
			logger.Log.Error("failed to get user", zap.Error(err))
			handlers.WriteJSONErrorResponse(w, "Unauthorized: User not found", http.StatusUnauthorized)
			return
		}

		err = appContext.GetContextError(ctx)
		if err != nil {
			handlers.PrepareError(w, err)
			return
		}

		r = r.WithContext(appContext.WithUserUID(r.Context(), &user.UUID))
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must sit behind Authenticate in the middleware chain.
func (am *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), am.contextTimeout)
		defer cancel()

		userUID := appContext.UserUID(ctx)
		if userUID == nil {
			handlers.WriteJSONErrorResponse(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		user, err := am.userService.GetByUUID(ctx, userUID)
		if err != nil {
			handlers.WriteJSONErrorResponse(w, "Unauthorized: User not found", http.StatusUnauthorized)
			return
		}
		if !user.IsAdmin {
			handlers.WriteJSONErrorResponse(w, "Forbidden: Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
