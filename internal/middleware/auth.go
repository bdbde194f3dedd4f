package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/option"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserEmailKey contextKey = "userEmail"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier checks a bearer token minted by the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type FirebaseAuthConfig struct {
	ProjectID       string
	CredentialsJSON string
}

// NewFirebaseApp initialises the Firebase app. Without credentials JSON the
// Application Default Credentials are used.
func NewFirebaseApp(ctx context.Context, cfg FirebaseAuthConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	var conf *firebase.Config
	if cfg.ProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return app, nil
}

func NewFirebaseAuthClient(ctx context.Context, cfg FirebaseAuthConfig) (*fbauth.Client, error) {
	app, err := NewFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	Client *fbauth.Client
}

func (v FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if v.Client == nil {
		return nil, errors.New("firebase auth not configured")
	}
	tok, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := tok.Claims["email"].(string)
	return &Identity{UserID: tok.UID, Email: email}, nil
}

// JWTVerifier accepts HS256 tokens signed with a shared secret. Used for
// local development where no Firebase project is available.
type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return &Identity{UserID: userID, Email: email}, nil
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(v, true)
}

// OptionalAuth lets anonymous requests through but still rejects a token
// that is present and invalid.
func OptionalAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(v, false)
}

func authenticate(v TokenVerifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authorization header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}
			if v == nil {
				writeJSON(w, http.StatusServiceUnavailable, models.NewErrorResponse("Authentication unavailable"))
				return
			}

			id, err := v.Verify(r.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, id.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, id.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity stores id in ctx the same way the auth middleware does.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.UserID)
	return context.WithValue(ctx, UserEmailKey, id.Email)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func GetUserEmail(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
