// Package validation normalizes and checks contact form payloads.
package validation

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldProjectType = "project_type"
	FieldMessage     = "message"

	maxURLs = 2
)

var (
	namePattern  = regexp.MustCompile(`^[\p{L}\s]+$`)
	tldPattern   = regexp.MustCompile(`\.[\p{L}]{2,}$`)
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	spamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(viagra|cialis|loan|casino|poker|gambling)\b`),
		regexp.MustCompile(`(?i)\b(click here|buy now|limited time|act now)\b`),
		regexp.MustCompile(`(?i)\$\d+.*\b(guaranteed|instant|easy money)\b`),
		regexp.MustCompile(`(?i)\bguaranteed\b.*\b(money|income|profits?|returns?)\b`),
		regexp.MustCompile(`(?i)\b(work from home|make money fast|get rich quick)\b`),
	}
	errorMessages = map[string]map[string]string{
		FieldName: {
			"required":       "Please tell us your name.",
			"min":            "Your name should be at least 2 characters.",
			"max":            "Your name may not be greater than 255 characters.",
			"letters_spaces": "Please enter a valid name (letters and spaces only).",
		},
		FieldEmail: {
			"required":     "We need your email to get back to you.",
			"max":          "Your email address may not be greater than 255 characters.",
			"email":        "Please enter a valid email address.",
			"email_domain": "Please enter a valid email address.",
		},
		FieldProjectType: {
			"oneof": "Please select a valid project type.",
		},
		FieldMessage: {
			"required": "Please tell us about your project.",
			"min":      "Please provide more details about your project (at least 10 characters).",
			"max":      "Your message is too long. Please keep it under 2000 characters.",
		},
	}
)

const (
	msgSpam          = "Your message appears to contain spam content."
	msgTooManyURLs   = "Please limit the number of URLs in your message."
	msgUnroutable    = "The email domain does not appear to accept mail."
	msgFieldFallback = "The value is invalid."
)

// ContactInput is the raw payload as received from the caller.
type ContactInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProjectType string `json:"project_type"`
	Message     string `json:"message"`
}

// NormalizedSubmission is a validated payload ready for persistence.
type NormalizedSubmission struct {
	Name        string
	Email       string
	ProjectType *domain.ProjectType
	Message     string
}

// FieldErrors maps a field name to every rule it failed.
type FieldErrors map[string][]string

// Add appends msg to field unless it is already listed.
func (fe FieldErrors) Add(field, msg string) {
	if slices.Contains(fe[field], msg) {
		return
	}
	fe[field] = append(fe[field], msg)
}

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// DomainChecker reports whether an email domain can receive mail.
type DomainChecker interface {
	AcceptsMail(ctx context.Context, domain string) bool
}

// fieldRule lists the validator tags checked for one field. Each tag is
// evaluated on its own so a value failing several rules reports all of them.
type fieldRule struct {
	field    string
	value    func(ContactInput) string
	required bool
	tags     []string
}

var fieldRules = []fieldRule{
	{FieldName, func(in ContactInput) string { return in.Name }, true, []string{"min=2", "max=255", "letters_spaces"}},
	{FieldEmail, func(in ContactInput) string { return in.Email }, true, []string{"max=255", "email", "email_domain"}},
	{FieldProjectType, func(in ContactInput) string { return in.ProjectType }, false, []string{"oneof=web-application mobile-app e-commerce saas-platform api-development consultation other"}},
	{FieldMessage, func(in ContactInput) string { return in.Message }, true, []string{"min=10", "max=2000"}},
}

// Validator checks contact payloads.
type Validator struct {
	validate *validator.Validate
	domains  DomainChecker
}

// Option configures a Validator.
type Option func(*Validator)

// WithDomainChecker enables the deployment-specific email domain lookup.
func WithDomainChecker(checker DomainChecker) Option {
	return func(v *Validator) {
		v.domains = checker
	}
}

// New builds a Validator.
func New(opts ...Option) *Validator {
	validate := validator.New()
	_ = validate.RegisterValidation("letters_spaces", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("email_domain", func(fl validator.FieldLevel) bool {
		_, host, ok := strings.Cut(fl.Field().String(), "@")
		return ok && tldPattern.MatchString(host)
	})

	v := &Validator{validate: validate}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Normalize trims the payload, lowercases the email and drops a blank project type.
func Normalize(in ContactInput) ContactInput {
	return ContactInput{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		ProjectType: strings.TrimSpace(in.ProjectType),
		Message:     strings.TrimSpace(in.Message),
	}
}

// Validate normalizes in and evaluates every rule. Either the normalized
// submission or a non-empty FieldErrors is returned, never both.
func (v *Validator) Validate(ctx context.Context, in ContactInput) (NormalizedSubmission, FieldErrors) {
	norm := Normalize(in)
	errs := FieldErrors{}

	for _, rule := range fieldRules {
		v.check(errs, rule, rule.value(norm))
	}

	if _, bad := errs[FieldEmail]; !bad && v.domains != nil {
		_, host, _ := strings.Cut(norm.Email, "@")
		if !v.domains.AcceptsMail(ctx, host) {
			errs.Add(FieldEmail, msgUnroutable)
		}
	}

	if ContainsSpam(norm.Message) {
		errs.Add(FieldMessage, msgSpam)
	}
	if CountURLs(norm.Message) > maxURLs {
		errs.Add(FieldMessage, msgTooManyURLs)
	}

	if len(errs) > 0 {
		return NormalizedSubmission{}, errs
	}

	out := NormalizedSubmission{
		Name:    norm.Name,
		Email:   norm.Email,
		Message: norm.Message,
	}
	if norm.ProjectType != "" {
		pt := domain.ProjectType(norm.ProjectType)
		out.ProjectType = &pt
	}
	return out, nil
}

// ContainsSpam reports whether message matches any spam keyword pattern.
func ContainsSpam(message string) bool {
	for _, pattern := range spamPatterns {
		if pattern.MatchString(message) {
			return true
		}
	}
	return false
}

// CountURLs counts http(s) URLs in message.
func CountURLs(message string) int {
	return len(urlPattern.FindAllStringIndex(message, -1))
}

func (v *Validator) check(errs FieldErrors, rule fieldRule, value string) {
	if value == "" {
		if rule.required {
			errs.Add(rule.field, messageFor(rule.field, "required"))
		}
		return
	}
	for _, tag := range rule.tags {
		if err := v.validate.Var(value, tag); err != nil {
			name, _, _ := strings.Cut(tag, "=")
			errs.Add(rule.field, messageFor(rule.field, name))
		}
	}
}

func messageFor(field, tag string) string {
	if msg, ok := errorMessages[field][tag]; ok {
		return msg
	}
	return msgFieldFallback
}
