// Package mail renders and delivers the contact form notifications.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	submittedAtLayout = "January 2, 2006 at 3:04 PM MST"

	tmplAdminNotice = "admin_notice"
	tmplAutoReply   = "auto_reply"
)

// Message is a fully encoded email ready for SMTP delivery.
type Message struct {
	From    string
	To      []string
	Subject string
	Raw     []byte
}

// ComposerConfig carries the addresses and presentation settings used in mails.
type ComposerConfig struct {
	FromAddress   string
	FromName      string
	AdminAddress  string
	AdminPanelURL string
	Location      *time.Location
}

// Composer builds MIME messages for submissions.
type Composer struct {
	cfg  ComposerConfig
	text *texttemplate.Template
	html *htmltemplate.Template
}

type templateData struct {
	Name             string
	Email            string
	Message          string
	HasProjectType   bool
	ProjectTypeLabel string
	SubmittedAt      string
	AdminURL         string
	SenderName       string
}

// NewComposer parses the embedded templates.
func NewComposer(cfg ComposerConfig) (*Composer, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Composer{cfg: cfg, text: text, html: html}, nil
}

// AdminNoticeSubject is the owner notice subject line for s.
func AdminNoticeSubject(s *domain.Submission) string {
	if s.ProjectType != nil {
		return fmt.Sprintf("New %s Inquiry from %s - Portfolio Contact", s.ProjectTypeLabel(), s.Name)
	}
	return fmt.Sprintf("New Project Inquiry from %s - Portfolio Contact", s.Name)
}

// AutoReplySubject is the submitter confirmation subject line for s.
func AutoReplySubject(s *domain.Submission) string {
	return fmt.Sprintf("Thanks for reaching out, %s", s.Name)
}

// AdminNotice renders the owner notification. Replies go to the submitter.
func (c *Composer) AdminNotice(s *domain.Submission) (*Message, error) {
	projectType := "not_specified"
	if s.ProjectType != nil {
		projectType = string(*s.ProjectType)
	}

	subject := AdminNoticeSubject(s)
	builder := enmime.Builder().
		From(c.cfg.FromName, c.cfg.FromAddress).
		To("", c.cfg.AdminAddress).
		ReplyTo(s.Name, s.Email).
		Subject(subject).
		Header("X-Contact-Id", s.ID).
		Header("X-Project-Type", projectType).
		Header("X-Tags", "contact-form").
		Header("X-Tags", "portfolio")

	return c.build(builder, tmplAdminNotice, s, c.cfg.AdminAddress, subject)
}

// AutoReply renders the receipt confirmation sent to the submitter.
func (c *Composer) AutoReply(s *domain.Submission) (*Message, error) {
	subject := AutoReplySubject(s)
	builder := enmime.Builder().
		From(c.cfg.FromName, c.cfg.FromAddress).
		To(s.Name, s.Email).
		Subject(subject).
		Header("X-Contact-Id", s.ID)

	return c.build(builder, tmplAutoReply, s, s.Email, subject)
}

func (c *Composer) build(builder enmime.MailBuilder, name string, s *domain.Submission, to, subject string) (*Message, error) {
	data := c.templateData(s)

	var text, html bytes.Buffer
	if err := c.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := c.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s html: %w", name, err)
	}

	part, err := builder.
		Date(time.Now()).
		Text(text.Bytes()).
		HTML(html.Bytes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build %s message: %w", name, err)
	}

	var raw bytes.Buffer
	if err := part.Encode(&raw); err != nil {
		return nil, fmt.Errorf("encode %s message: %w", name, err)
	}
	return &Message{
		From:    c.cfg.FromAddress,
		To:      []string{to},
		Subject: subject,
		Raw:     raw.Bytes(),
	}, nil
}

func (c *Composer) templateData(s *domain.Submission) templateData {
	data := templateData{
		Name:             s.Name,
		Email:            s.Email,
		Message:          s.Message,
		HasProjectType:   s.ProjectType != nil,
		ProjectTypeLabel: s.ProjectTypeLabel(),
		SubmittedAt:      s.CreatedAt.In(c.cfg.Location).Format(submittedAtLayout),
		SenderName:       c.cfg.FromName,
	}
	if base := strings.TrimRight(c.cfg.AdminPanelURL, "/"); base != "" && s.ID != "" {
		data.AdminURL = base + "/" + s.ID
	}
	return data
}
