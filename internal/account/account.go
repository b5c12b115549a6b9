// Package account signs customers in and out and manages their passwords.
package account

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/forms"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/services"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
)

// Messages shown when the store gives no reason.
const (
	RegisterFailed       = "Registration failed. Please try again."
	LoginFailed          = "Login failed. Please check your credentials."
	ChangePasswordFailed = "Failed to change password. Please check your details."
	ResetPasswordFailed  = "Failed to reset password. Please check your details."
)

// Service runs account operations against the store and keeps the session in step.
type Service struct {
	api       services.Accounts
	session   *session.State
	validator *forms.Validator
	logger    *log.Logger
}

// New creates a [Service]. A nil validator gets the default rules.
func New(api services.Accounts, sess *session.State, v *forms.Validator, logger *log.Logger) *Service {
	if v == nil {
		v = forms.New()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Service{api: api, session: sess, validator: v, logger: logger}
}

// Register validates req, creates the account, and signs it in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if err := s.validator.Registration(req); err != nil {
		return nil, err
	}

	customer, err := s.api.Register(ctx, req)
	if err != nil {
		s.logger.Warn("registration failed", "username", req.Username, "error", err)
		return nil, err
	}
	s.signIn(customer)
	return customer, nil
}

// Login authenticates and replaces the current session.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Customer, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, shared.NewValidationError("username", "Username and password are required")
	}

	customer, err := s.api.Login(ctx, models.LoginRequest{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		return nil, err
	}
	s.signIn(customer)
	return customer, nil
}

func (s *Service) signIn(customer *models.Customer) {
	if err := s.session.Login(customer.Session()); err != nil {
		s.logger.Warn("session not persisted", "customer_id", customer.CustomerID, "error", err)
	}
}

// Logout ends the session. It never contacts the store.
func (s *Service) Logout() {
	if err := s.session.Logout(); err != nil {
		s.logger.Warn("session slot not cleared", "error", err)
	}
}

// Whoami returns the current session.
func (s *Service) Whoami() (*models.Session, error) {
	current, ok := s.session.Current()
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}
	return current, nil
}

// Profile fetches the signed-in customer's account record.
func (s *Service) Profile(ctx context.Context) (*models.Customer, error) {
	customerID, err := s.session.CustomerID()
	if err != nil {
		return nil, err
	}
	return s.api.Profile(ctx, customerID)
}

// ChangePassword sets a new password for the signed-in customer.
func (s *Service) ChangePassword(ctx context.Context, newPassword, confirm string) (string, error) {
	if err := s.validator.NewPassword(newPassword, confirm); err != nil {
		return "", err
	}
	customerID, err := s.session.CustomerID()
	if err != nil {
		return "", err
	}

	msg, err := s.api.ChangePassword(ctx, models.ChangePasswordRequest{CustomerID: customerID, NewPassword: newPassword})
	if err != nil {
		s.logger.Warn("password change failed", "customer_id", customerID, "error", err)
		return "", err
	}
	s.logger.Info("password changed", "customer_id", customerID)
	return msg, nil
}

// ForgotPassword resets the password of the account registered with email.
func (s *Service) ForgotPassword(ctx context.Context, email, newPassword string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || newPassword == "" {
		return "", shared.NewValidationError("email", "Email and new password are required")
	}

	msg, err := s.api.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: email, NewPassword: newPassword})
	if err != nil {
		s.logger.Warn("password reset failed", "email", email, "error", err)
		return "", err
	}
	return msg, nil
}
