package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const sessionKeyPrefix = "session:"

type sessionClaims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService turns staff credentials into session principals. Credentials
// live in the admins table (bcrypt hashes); live sessions are tracked in
// redis so logout actually revokes a token.
type AuthService struct {
	repo   *repo.Repo
	redis  *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewAuthService(r *repo.Repo, redisClient *redis.Client, secret string, ttl time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, secret: []byte(secret), ttl: ttl}
}

// Login checks the credential case-insensitively on username and returns a
// signed session token plus the principal it encodes.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, models.Principal, error) {
	admins, err := s.repo.Admins.List()
	if err != nil {
		return "", models.Principal{}, err
	}

	var admin models.Admin
	found := false
	for _, a := range admins {
		if strings.EqualFold(a.Username, strings.TrimSpace(username)) {
			admin, found = a, true
			break
		}
	}
	if !found {
		return "", models.Principal{}, status.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", models.Principal{}, status.ErrBadCredentials
	}

	sessionID := uuid.NewString()
	now := time.Now()
	claims := sessionClaims{
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.Principal{}, fmt.Errorf("auth: sign session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+sessionID, admin.ID, s.ttl).Err(); err != nil {
		return "", models.Principal{}, fmt.Errorf("auth: store session: %w", err)
	}

	return token, models.Principal{ID: admin.ID, Username: admin.Username, Role: admin.Role}, nil
}

// Authorize validates a session token and returns the principal. Expired,
// malformed and revoked tokens all come back as ErrSessionExpired.
func (s *AuthService) Authorize(ctx context.Context, token string) (models.Principal, error) {
	claims, err := s.parse(token)
	if err != nil {
		return models.Principal{}, status.ErrSessionExpired
	}

	err = s.redis.Get(ctx, sessionKeyPrefix+claims.ID).Err()
	if errors.Is(err, redis.Nil) {
		return models.Principal{}, status.ErrSessionExpired
	}
	if err != nil {
		return models.Principal{}, fmt.Errorf("auth: session lookup: %w", err)
	}

	return models.Principal{ID: claims.Subject, Username: claims.Username, Role: claims.Role}, nil
}

// Logout revokes the session behind the token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.redis.Del(ctx, sessionKeyPrefix+claims.ID).Err(); err != nil {
		return fmt.Errorf("auth: revoke session: %w", err)
	}
	return nil
}

func (s *AuthService) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("auth: token has no session id")
	}
	return claims, nil
}
