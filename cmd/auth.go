package main

import (
	"context"

	"github.com/desertthunder/audx/internal/account"
	"github.com/desertthunder/audx/internal/models"
	"github.com/urfave/cli/v3"
)

// AuthRegister creates an account and signs it in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	req := models.RegisterRequest{
		Username:        cmd.String("username"),
		Name:            cmd.String("name"),
		Email:           cmd.String("email"),
		Password:        cmd.String("password"),
		ConfirmPassword: cmd.String("confirm"),
	}
	if req.ConfirmPassword == "" {
		req.ConfirmPassword = req.Password
	}

	customer, err := r.accounts.Register(ctx, req)
	if err != nil {
		return describe(err, account.RegisterFailed)
	}
	return r.writePlain("✓ Registered and signed in as %s (customer %d)\n", customer.Username, customer.CustomerID)
}

// AuthLogin signs in and stores the session locally.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	customer, err := r.accounts.Login(ctx, cmd.String("username"), cmd.String("password"))
	if err != nil {
		return describe(err, account.LoginFailed)
	}
	return r.writePlain("✓ Signed in as %s\n", customer.Username)
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.accounts.Logout()
	return r.writePlain("✓ Signed out\n")
}

// AuthWhoami prints the stored session.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	current, err := r.accounts.Whoami()
	if err != nil {
		return describe(err, "")
	}
	if cmd.Bool("json") {
		return r.writeJSON(current, true)
	}
	r.writePlain("Username: %s\n", current.Username)
	if current.Name != "" {
		r.writePlain("Name:     %s\n", current.Name)
	}
	return r.writePlain("Customer: %d\n", current.CustomerID)
}

// AuthProfile fetches the account record from the store.
func (r *Runner) AuthProfile(ctx context.Context, cmd *cli.Command) error {
	customer, err := r.accounts.Profile(ctx)
	if err != nil {
		return describe(err, "Failed to load profile")
	}
	if cmd.Bool("json") {
		return r.writeJSON(customer, true)
	}
	r.writePlainHeader("Profile")
	r.writePlain("Customer: %d\n", customer.CustomerID)
	r.writePlain("Username: %s\n", customer.Username)
	r.writePlain("Name:     %s\n", customer.Name)
	return r.writePlain("Email:    %s\n", customer.Email)
}

// AuthChangePassword sets a new password for the signed-in customer.
func (r *Runner) AuthChangePassword(ctx context.Context, cmd *cli.Command) error {
	msg, err := r.accounts.ChangePassword(ctx, cmd.String("new-password"), cmd.String("confirm"))
	if err != nil {
		return describe(err, account.ChangePasswordFailed)
	}
	return r.writePlain("✓ %s\n", msg)
}

// AuthForgotPassword resets the password for an email address.
func (r *Runner) AuthForgotPassword(ctx context.Context, cmd *cli.Command) error {
	msg, err := r.accounts.ForgotPassword(ctx, cmd.String("email"), cmd.String("new-password"))
	if err != nil {
		return describe(err, account.ResetPasswordFailed)
	}
	return r.writePlain("✓ %s\n", msg)
}
