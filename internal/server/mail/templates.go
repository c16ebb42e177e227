package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names.
const (
	TemplateRegister        = "register"
	TemplateReset           = "reset"
	TemplatePasswordChanged = "password_changed"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "register"}}<p>Hello {{.Username}},</p>
<p>Welcome to {{.Platform}}. Your account for {{.To}} is ready.</p>{{end}}
{{define "reset"}}<p>Hello {{.Username}},</p>
<p>Use this code to reset your {{.Platform}} password: <strong>{{.Code}}</strong></p>
<p>If you did not ask for a reset you can ignore this mail.</p>{{end}}
{{define "password_changed"}}<p>Hello {{.Username}},</p>
<p>The password of your {{.Platform}} account was changed.</p>{{end}}
`))

type templateData struct {
	Platform string
	To       string
	Username string
	Code     string
}

// Composer renders the account notifications for one platform name.
type Composer struct {
	platform string
}

func NewComposer(platform string) *Composer {
	return &Composer{platform: platform}
}

func (c *Composer) Register(to, username string) (Message, error) {
	return c.render(TemplateRegister, fmt.Sprintf("Welcome to %s", c.platform),
		templateData{To: to, Username: username})
}

func (c *Composer) Reset(to, username, code string) (Message, error) {
	return c.render(TemplateReset, fmt.Sprintf("%s password reset", c.platform),
		templateData{To: to, Username: username, Code: code})
}

func (c *Composer) PasswordChanged(to, username string) (Message, error) {
	return c.render(TemplatePasswordChanged, fmt.Sprintf("Your %s password was changed", c.platform),
		templateData{To: to, Username: username})
}

func (c *Composer) render(name, title string, data templateData) (Message, error) {
	data.Platform = c.platform

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s mail: %w", name, err)
	}

	return Message{To: data.To, Title: title, Content: buf.String(), Template: name}, nil
}
