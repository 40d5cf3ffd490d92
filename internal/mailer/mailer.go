package mailer

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"text/template"
)

const (
	FromName              = "qrclock"
	maxRetires            = 3
	AdminWelcomeTemplate  = "admin_welcome.tmpl"
	AccountCreateTemplate = "account_created.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}

// rendered is one template expanded into its three parts.
type rendered struct {
	subject string
	plain   string
	html    string
}

func render(templateFile string, data any) (*rendered, error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}
	out := &rendered{}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}
	out.subject = subject.String()

	plain := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plain, "plainBody", data); err != nil {
		return nil, err
	}
	out.plain = plain.String()

	htmlTmpl, err := htmltemplate.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}
	body := new(bytes.Buffer)
	if err := htmlTmpl.ExecuteTemplate(body, "htmlBody", data); err != nil {
		return nil, err
	}
	out.html = body.String()

	return out, nil
}
