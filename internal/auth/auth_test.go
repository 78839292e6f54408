package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	id := uuid.New()

	token, exp, err := iss.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %s is in the past", exp)
	}
	got, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != id {
		t.Errorf("Parse = %s, want %s", got, id)
	}
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	token, _, err := iss.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := map[string]struct {
		issuer *Issuer
		token  string
	}{
		"wrong secret": {NewIssuer("other", time.Hour), token},
		"expired":      {iss, old},
		"garbage":      {iss, "not.a.jwt"},
		"empty":        {iss, ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tt.issuer.Parse(tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("Parse: err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestCurrentUser(t *testing.T) {
	if _, err := CurrentUser(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("empty context: err = %v, want ErrUnauthorized", err)
	}
	id := uuid.New()
	got, err := CurrentUser(WithUser(context.Background(), id))
	if err != nil || got != id {
		t.Errorf("CurrentUser = %s, %v; want %s", got, err, id)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryStore(), NewIssuer("secret", time.Hour), zerolog.Nop())

	u, err := svc.Register(ctx, "  Ana@Example.com ", "correct horse", nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}
	if u.PasswordHash == "correct horse" {
		t.Error("password stored in plain text")
	}

	if _, err := svc.Register(ctx, "ana@example.com", "another one", nil); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("duplicate Register: err = %v, want ErrEmailTaken", err)
	}

	token, _, got, err := svc.Login(ctx, "ANA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID || token == "" {
		t.Errorf("Login returned user %s token %q", got.ID, token)
	}

	if _, _, _, err := svc.Login(ctx, "ana@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("bad password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}

	me, err := svc.Me(WithUser(ctx, u.ID))
	if err != nil || me.ID != u.ID {
		t.Errorf("Me = %v, %v", me, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), NewIssuer("secret", time.Hour), zerolog.Nop())
	tests := []struct{ email, password string }{
		{"not-an-email", "long enough"},
		{"a@b.co", "short"},
	}
	for _, tt := range tests {
		if _, err := svc.Register(context.Background(), tt.email, tt.password, nil); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Register(%q, %q): err = %v, want ErrInvalidInput", tt.email, tt.password, err)
		}
	}
}
