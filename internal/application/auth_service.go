package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

// AuthService is the authentication gate. A caller is Anonymous until a
// credential check succeeds, then Authenticated(userID) until logout or
// session expiry.
type AuthService struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	JWT      *helpers.JWTManager
	Logger   *logrus.Logger

	// PasswordCost is the bcrypt cost for new accounts; zero means the default.
	PasswordCost int

	now       func() time.Time
	dummyOnce sync.Once
	dummy     string
}

// SessionTicket is what the transport hands back to the client.
type SessionTicket struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(users repository.UserRepository, sessions repository.SessionRepository, jwt *helpers.JWTManager, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:    users,
		Sessions: sessions,
		JWT:      jwt,
		Logger:   logger,
		now:      time.Now,
	}
}

// Register creates a bouncer account with no bar. The username check is a
// lookup first; the store still rejects a duplicate that slips in between.
func (s *AuthService) Register(ctx context.Context, username, password string) (*entity.User, error) {
	if _, err := s.Users.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := helpers.HashPasswordCost(password, s.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.Users.CreateUser(ctx, entity.NewUser{Username: username, Password: hash})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	helpers.LogInfo(s.Logger, "user registered", logrus.Fields{"user_id": u.ID, "username": u.Username})
	return u, nil
}

// Authenticate validates username/password and returns the user without opening a session.
// Unknown usernames still pay for one bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.Users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		helpers.CompareHashAndPassword(s.dummyHash(), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = helpers.HashPasswordCost("bar-occupancy-dummy", s.PasswordCost)
	})
	return s.dummy
}

// IssueSession records a new session and signs a token naming it.
func (s *AuthService) IssueSession(ctx context.Context, u *entity.User) (SessionTicket, error) {
	sid := uuid.NewString()
	token, exp, err := s.JWT.GenerateSessionToken(u.ID, sid)
	if err != nil {
		helpers.LogError(s.Logger, "generate session token failed", err, logrus.Fields{"user_id": u.ID})
		return SessionTicket{}, err
	}
	sess := entity.Session{ID: sid, UserID: u.ID, CreatedAt: s.now(), ExpiresAt: exp}
	if err := s.Sessions.Save(ctx, sess, s.JWT.TTL); err != nil {
		helpers.LogError(s.Logger, "save session failed", err, logrus.Fields{"user_id": u.ID})
		return SessionTicket{}, fmt.Errorf("save session: %w", err)
	}
	return SessionTicket{SessionID: sid, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*entity.User, SessionTicket, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, SessionTicket{}, err
	}
	ticket, err := s.IssueSession(ctx, u)
	if err != nil {
		return nil, SessionTicket{}, err
	}
	loginsTotal.Add(1)
	return u, ticket, nil
}

// Resolve maps a session token to its user. Any failure to find a live
// session yields ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.JWT.ParseSessionToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	sess, err := s.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			helpers.LogError(s.Logger, "session lookup failed", err, logrus.Fields{"sid": claims.SessionID})
		}
		return nil, ErrUnauthenticated
	}
	if sess.UserID != claims.UserID {
		return nil, ErrUnauthenticated
	}
	u, err := s.Users.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// Logout revokes the session named by token. Unparseable tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.JWT.ParseSessionToken(token)
	if err != nil {
		return nil
	}
	return s.Sessions.Delete(ctx, claims.SessionID)
}
