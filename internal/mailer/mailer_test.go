package mailer

import (
	"strings"
	"testing"
)

type welcome struct {
	Username    string
	CompanyName string
	Role        string
	LoginURL    string
}

func TestRenderTemplates(t *testing.T) {
	data := welcome{Username: "ann", CompanyName: "Acme <Ltd>", Role: "admin", LoginURL: "https://panel.example"}

	for _, name := range []string{AdminWelcomeTemplate, AccountCreateTemplate} {
		r, err := render(name, data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if r.subject == "" {
			t.Errorf("%s: empty subject", name)
		}
		if !strings.Contains(r.plain, "Acme <Ltd>") {
			t.Errorf("%s: plain body should carry the raw name: %q", name, r.plain)
		}
		if !strings.Contains(r.html, "Acme &lt;Ltd&gt;") {
			t.Errorf("%s: html body should escape the name: %q", name, r.html)
		}
	}
}

func TestMessageHeaders(t *testing.T) {
	c, err := NewSMTPClient(SMTPConfig{Host: "localhost", Port: 2525, FromEmail: "noreply@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := c.message(AdminWelcomeTemplate, "ann", "ann@example.com", welcome{Username: "ann", CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "Welcome to qrclock, ann" {
		t.Errorf("unexpected subject %v", got)
	}
	if got := m.GetHeader("To"); len(got) != 1 || !strings.Contains(got[0], "ann@example.com") {
		t.Errorf("unexpected recipient %v", got)
	}
}

func TestNewSMTPClientRequiresHost(t *testing.T) {
	if _, err := NewSMTPClient(SMTPConfig{FromEmail: "x@example.com"}); err == nil {
		t.Error("expected an error without host")
	}
}
