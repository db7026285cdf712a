package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"query_clash_backend/internal/config"
	"query_clash_backend/internal/model"
	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginResult struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

type AuthService struct {
	Participants *repository.ParticipantRepository
	Cfg          *config.Config
	Now          func() time.Time
}

func NewAuthService(participants *repository.ParticipantRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		Participants: participants,
		Cfg:          cfg,
		Now:          time.Now,
	}
}

// Login authenticates a participant, registering unknown names on the fly.
// The configured admin credentials produce an admin session instead.
func (s *AuthService) Login(ctx context.Context, name, password string) (*LoginResult, error) {
	if name == "" || password == "" {
		return nil, util.ErrCredentialsRequired
	}

	if s.isAdmin(name, password) {
		logger.Log.Info("Admin logged in", zap.String("name", name))
		return s.issue(name, model.RoleAdmin)
	}

	if strings.EqualFold(name, password) {
		return nil, util.ErrSameNameAndPassword
	}

	participants := s.Participants.WithTx(s.Participants.DB.WithContext(ctx))

	p, err := participants.FindByName(name)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}

	if p == nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		err = participants.Create(&model.Participant{
			Name:           name,
			Password:       string(hashed),
			CurrentRound:   1,
			RoundStartTime: util.FormatTimestamp(s.Now()),
		})
		if err == nil {
			logger.Log.Info("New participant registered", zap.String("name", name))
			return s.issue(name, model.RoleParticipant)
		}
		if !repository.IsDuplicateKey(err) {
			return nil, err
		}
		// Lost a registration race; check the password against the winner.
		if p, err = participants.FindByName(name); err != nil {
			return nil, err
		}
	}

	if !s.checkPassword(ctx, p, password) {
		logger.Log.Warn("Failed login attempt", zap.String("name", name))
		return nil, util.ErrInvalidCredentials
	}
	return s.issue(name, model.RoleParticipant)
}

func (s *AuthService) isAdmin(name, password string) bool {
	admin := s.Cfg.Admin
	if admin.User == "" || admin.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(name), []byte(admin.User)) == 1 &&
		subtle.ConstantTimeCompare([]byte(password), []byte(admin.Password)) == 1
}

// checkPassword accepts bcrypt hashes and, for rows carried over from the
// plaintext era, a plain comparison followed by an in-place upgrade.
func (s *AuthService) checkPassword(ctx context.Context, p *model.Participant, password string) bool {
	if strings.HasPrefix(p.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) == nil
	}
	if subtle.ConstantTimeCompare([]byte(p.Password), []byte(password)) != 1 {
		return false
	}
	if hashed, herr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); herr == nil {
		participants := s.Participants.WithTx(s.Participants.DB.WithContext(ctx))
		if err := participants.UpdatePassword(p.Name, string(hashed)); err != nil {
			logger.Log.Warn("Could not upgrade legacy password", zap.String("name", p.Name), zap.Error(err))
		}
	}
	return true
}

func (s *AuthService) issue(name string, role model.ParticipantRole) (*LoginResult, error) {
	token, err := util.GenerateJWT(name, role, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Name: name, Admin: role == model.RoleAdmin}, nil
}
