package models

import (
	"encoding/json"
	"testing"
)

func TestAudiobook(t *testing.T) {
	t.Run("decodes nullable fields", func(t *testing.T) {
		raw := `{"audioId":5,"title":"Dune","narrator":"Scott Brick","duration":null,"description":"","price":499.5,
			"coverImage":null,"audioFile":"https://cdn.example.com/dune.mp3","shortClip":null,"totalStar":4.5,
			"authorId":2,"authorName":"Frank Herbert"}`

		var a Audiobook
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if a.AudioURL() != "https://cdn.example.com/dune.mp3" {
			t.Errorf("unexpected audio url %q", a.AudioURL())
		}
		if a.Author() != "Frank Herbert" {
			t.Errorf("unexpected author %q", a.Author())
		}
		if a.KnownDuration() != 0 {
			t.Errorf("null duration should be 0, got %v", a.KnownDuration())
		}
		if a.CoverImage != nil {
			t.Error("cover image should be nil")
		}
	})
}

func TestCustomerSession(t *testing.T) {
	c := Customer{CustomerID: 7, Username: "alice", Name: "Alice Smith", Email: "alice@example.com"}
	s := c.Session()
	if s.CustomerID != 7 || s.Username != "alice" || s.Email != "alice@example.com" || s.Name != "Alice Smith" {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestPaymentCardMaskedNumber(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"1234567812345678", "**** **** **** 5678"},
		{"123", "123"},
	}
	for _, tt := range tests {
		if got := (PaymentCard{CardNumber: tt.number}).MaskedNumber(); got != tt.want {
			t.Errorf("MaskedNumber(%s) = %s, want %s", tt.number, got, tt.want)
		}
	}
}

func TestRegisterRequestOmitsConfirmation(t *testing.T) {
	data, err := json.Marshal(RegisterRequest{Username: "a", Name: "A", Email: "a@b.com", Password: "p", ConfirmPassword: "p"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["confirmPassword"]; ok {
		t.Error("confirmPassword must not be sent")
	}
}

func TestDownloadRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  *DownloadRecord
		wantErr bool
	}{
		{"valid", NewDownloadRecord(1, "Dune", "/tmp/dune.mp3", 10), false},
		{"missing audio id", NewDownloadRecord(0, "Dune", "/tmp/dune.mp3", 10), true},
		{"missing path", NewDownloadRecord(1, "Dune", "", 10), true},
		{"negative bytes", NewDownloadRecord(1, "Dune", "/tmp/x", -1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.record.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
