package forms

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

var fixedNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func validCard() models.PaymentRequest {
	return models.PaymentRequest{
		CustomerID:     1,
		CardNumber:     "4111111111111111",
		CardHolderName: "Asha Rao",
		ExpiryDate:     "2028-01-31",
		CVV:            "123",
		CardType:       models.CreditCard,
	}
}

func validRegistration() models.RegisterRequest {
	return models.RegisterRequest{
		Username:        "asha_rao",
		Name:            "Asha Rao",
		Email:           "asha@example.in",
		Password:        "Secret@12",
		ConfirmPassword: "Secret@12",
	}
}

func TestCard(t *testing.T) {
	v := New(WithNow(func() time.Time { return fixedNow }))

	tests := []struct {
		name    string
		mutate  func(*models.PaymentRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(*models.PaymentRequest) {}},
		{name: "debit is accepted", mutate: func(r *models.PaymentRequest) { r.CardType = models.DebitCard }},
		{name: "short number", mutate: func(r *models.PaymentRequest) { r.CardNumber = "411111111111111" }, wantErr: "Card number must be 16 digits"},
		{name: "letters in number", mutate: func(r *models.PaymentRequest) { r.CardNumber = "41111111111111ab" }, wantErr: "Card number must be 16 digits"},
		{name: "digits in holder", mutate: func(r *models.PaymentRequest) { r.CardHolderName = "R2D2" }, wantErr: "Name should contain only alphabets"},
		{name: "empty holder", mutate: func(r *models.PaymentRequest) { r.CardHolderName = "" }, wantErr: "Name should contain only alphabets"},
		{name: "expiry today", mutate: func(r *models.PaymentRequest) { r.ExpiryDate = "2026-03-15" }, wantErr: "Date should be a future date"},
		{name: "expiry garbage", mutate: func(r *models.PaymentRequest) { r.ExpiryDate = "03/28" }, wantErr: "Date should be a future date"},
		{name: "two digit cvv", mutate: func(r *models.PaymentRequest) { r.CVV = "12" }, wantErr: "CVV should be 3 digits"},
		{name: "unknown type", mutate: func(r *models.PaymentRequest) { r.CardType = "Gift Card" }, wantErr: "Card type should be Credit Card or Debit Card"},
		{
			name: "first failing rule wins",
			mutate: func(r *models.PaymentRequest) {
				r.CVV = "1"
				r.CardHolderName = "R2D2"
			},
			wantErr: "Name should contain only alphabets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCard()
			tt.mutate(&req)

			err := v.Card(req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Card() error = %v", err)
				}
				return
			}
			if !errors.Is(err, shared.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Card() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRegistration(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		mutate  func(*models.RegisterRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(*models.RegisterRequest) {}},
		{name: "lowercase name", mutate: func(r *models.RegisterRequest) { r.Name = "asha Rao" }, wantErr: "Name must contain only letters, each word starting with capital letter"},
		{name: "camel name", mutate: func(r *models.RegisterRequest) { r.Name = "AshA" }, wantErr: "Name must contain only letters, each word starting with capital letter"},
		{name: "net email", mutate: func(r *models.RegisterRequest) { r.Email = "asha@example.net" }, wantErr: "Invalid email format (must end with .com, .org, or .in)"},
		{name: "no at", mutate: func(r *models.RegisterRequest) { r.Email = "asha.example.com" }, wantErr: "Invalid email format (must end with .com, .org, or .in)"},
		{name: "uppercase username", mutate: func(r *models.RegisterRequest) { r.Username = "Asha" }, wantErr: "Username must contain only lowercase letters, digits, and special characters"},
		{name: "weak password", mutate: func(r *models.RegisterRequest) {
			r.Password = "secret12"
			r.ConfirmPassword = "secret12"
		}, wantErr: "Password must be 8-16 characters with at least one lowercase, uppercase, digit, and special character"},
		{name: "mismatch", mutate: func(r *models.RegisterRequest) { r.ConfirmPassword = "Secret@13" }, wantErr: "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)

			err := v.Registration(req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Registration() error = %v", err)
				}
				return
			}
			if got := shared.UserMessage(err, ""); got != tt.wantErr {
				t.Errorf("Registration() message = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Secret@12", true},
		{"Aa1@aaaa", true},
		{"Aa1@aaa", false},
		{"Aa1@aaaaaaaaaaaaa", false},
		{"Secret12", false},
		{"secret@12", false},
		{"SECRET@12", false},
		{"Secret@ab", false},
		{"Secret#12", false},
		{"Secret @12", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Password(tt.in); got != tt.want {
				t.Errorf("Password(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFutureDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2026-03-16", true},
		{"2026-03-15", false},
		{"2026-03-14", false},
		{"2026-02-30", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FutureDate(tt.in, fixedNow); got != tt.want {
				t.Errorf("FutureDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewPassword(t *testing.T) {
	v := New()
	if err := v.NewPassword("Secret@12", "Secret@12"); err != nil {
		t.Errorf("NewPassword() error = %v", err)
	}
	err := v.NewPassword("Secret@12", "Secret@21")
	if shared.UserMessage(err, "") != "New password and confirm password do not match" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestCVV(t *testing.T) {
	for in, want := range map[string]bool{"123": true, "12": false, "1234": false, "12a": false, "": false} {
		if got := CVV(in); got != want {
			t.Errorf("CVV(%q) = %v, want %v", in, got, want)
		}
	}
}
