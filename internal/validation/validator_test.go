package validation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

type stubDomains struct {
	accept bool
	asked  []string
}

func (s *stubDomains) AcceptsMail(_ context.Context, d string) bool {
	s.asked = append(s.asked, d)
	return s.accept
}

func validInput() ContactInput {
	return ContactInput{
		Name:        "Jo Smith",
		Email:       "jo@example.com",
		ProjectType: "web-application",
		Message:     "I would like a portfolio site built.",
	}
}

func TestValidate_AcceptsAndNormalizes(t *testing.T) {
	v := New()
	in := validInput()
	in.Name = "  Jo Smith "
	in.Email = " JO@Example.COM "

	out, errs := v.Validate(context.Background(), in)
	require.Empty(t, errs)
	assert.Equal(t, "Jo Smith", out.Name)
	assert.Equal(t, "jo@example.com", out.Email)
	require.NotNil(t, out.ProjectType)
	assert.Equal(t, domain.ProjectTypeWebApplication, *out.ProjectType)
}

func TestValidate_ProjectTypeOptional(t *testing.T) {
	in := validInput()
	in.ProjectType = "  "

	out, errs := New().Validate(context.Background(), in)
	require.Empty(t, errs)
	assert.Nil(t, out.ProjectType)
}

func TestValidate_UnicodeNames(t *testing.T) {
	in := validInput()
	in.Name = "José Ñúñez"

	_, errs := New().Validate(context.Background(), in)
	assert.Empty(t, errs)
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContactInput)
		field   string
		message string
	}{
		{"name with digits", func(in *ContactInput) { in.Name = "R2D2" }, FieldName, "Please enter a valid name (letters and spaces only)."},
		{"name too short", func(in *ContactInput) { in.Name = "J" }, FieldName, "Your name should be at least 2 characters."},
		{"name missing", func(in *ContactInput) { in.Name = "" }, FieldName, "Please tell us your name."},
		{"email malformed", func(in *ContactInput) { in.Email = "not-an-email" }, FieldEmail, "Please enter a valid email address."},
		{"email missing", func(in *ContactInput) { in.Email = " " }, FieldEmail, "We need your email to get back to you."},
		{"unknown project type", func(in *ContactInput) { in.ProjectType = "blockchain" }, FieldProjectType, "Please select a valid project type."},
		{"message too short", func(in *ContactInput) { in.Message = "too short" }, FieldMessage, "Please provide more details about your project (at least 10 characters)."},
		{"message too long", func(in *ContactInput) { in.Message = strings.Repeat("a", 2001) }, FieldMessage, "Your message is too long. Please keep it under 2000 characters."},
		{"message with three urls", func(in *ContactInput) {
			in.Message = "See http://a.example https://b.example and http://c.example for ideas"
		}, FieldMessage, "Please limit the number of URLs in your message."},
		{"message with spam phrase", func(in *ContactInput) { in.Message = "Please buy now before it is gone" }, FieldMessage, "Your message appears to contain spam content."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			out, errs := New().Validate(context.Background(), in)
			require.NotEmpty(t, errs)
			assert.Equal(t, NormalizedSubmission{}, out)
			assert.Contains(t, errs[tt.field], tt.message)
		})
	}
}

func TestValidate_MessageLengthBoundaries(t *testing.T) {
	v := New()
	for _, msg := range []string{strings.Repeat("a", 10), strings.Repeat("é", 2000)} {
		in := validInput()
		in.Message = msg
		_, errs := v.Validate(context.Background(), in)
		assert.Empty(t, errs, "message of %d runes", len([]rune(msg)))
	}
}

func TestValidate_TwoURLsAllowed(t *testing.T) {
	in := validInput()
	in.Message = "My current site is https://a.example and the mockups are at https://b.example"

	_, errs := New().Validate(context.Background(), in)
	assert.Empty(t, errs)
}

func TestValidate_ReportsAllFailingFields(t *testing.T) {
	in := ContactInput{
		Name:    "R2D2",
		Email:   "not-an-email",
		Message: "Click here for guaranteed easy money now!!!",
	}

	_, errs := New().Validate(context.Background(), in)
	assert.Equal(t, []string{FieldEmail, FieldMessage, FieldName}, errs.Fields())
	assert.Contains(t, errs[FieldMessage], "Your message appears to contain spam content.")
}

func TestValidate_ReportsEveryFailingRuleOfAField(t *testing.T) {
	const (
		tooShort     = "Your name should be at least 2 characters."
		tooLong      = "Your name may not be greater than 255 characters."
		badName      = "Please enter a valid name (letters and spaces only)."
		emailTooLong = "Your email address may not be greater than 255 characters."
		badEmail     = "Please enter a valid email address."
	)
	tests := []struct {
		name   string
		mutate func(*ContactInput)
		field  string
		want   []string
	}{
		{"single digit name", func(in *ContactInput) { in.Name = "1" }, FieldName, []string{tooShort, badName}},
		{"long name with digit", func(in *ContactInput) { in.Name = strings.Repeat("a", 255) + "9" }, FieldName, []string{tooLong, badName}},
		{"long malformed email", func(in *ContactInput) { in.Email = strings.Repeat("x", 250) + "@@example" }, FieldEmail, []string{emailTooLong, badEmail}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, errs := New().Validate(context.Background(), in)
			assert.Equal(t, []string{tt.field}, errs.Fields())
			assert.Equal(t, tt.want, errs[tt.field])
		})
	}
}

func TestValidate_NamesWithDigitsAlwaysRejected(t *testing.T) {
	v := New()
	for _, name := range []string{"7", "Jo 3", "R2D2", strings.Repeat("b", 300) + "0"} {
		in := validInput()
		in.Name = name
		_, errs := v.Validate(context.Background(), in)
		assert.Contains(t, errs[FieldName], "Please enter a valid name (letters and spaces only).", "name %q", name)
	}
}

func TestFieldErrors_AddSkipsDuplicates(t *testing.T) {
	errs := FieldErrors{}
	errs.Add(FieldEmail, "Please enter a valid email address.")
	errs.Add(FieldEmail, "Please enter a valid email address.")
	assert.Len(t, errs[FieldEmail], 1)
}

func TestValidate_DomainChecker(t *testing.T) {
	checker := &stubDomains{accept: false}
	v := New(WithDomainChecker(checker))

	_, errs := v.Validate(context.Background(), validInput())
	assert.Equal(t, []string{"example.com"}, checker.asked)
	assert.Contains(t, errs[FieldEmail], "The email domain does not appear to accept mail.")

	checker.accept = true
	_, errs = v.Validate(context.Background(), validInput())
	assert.Empty(t, errs)
}

func TestValidate_DomainCheckerSkippedForMalformedEmail(t *testing.T) {
	checker := &stubDomains{accept: true}
	in := validInput()
	in.Email = "nope"

	_, _ = New(WithDomainChecker(checker)).Validate(context.Background(), in)
	assert.Empty(t, checker.asked)
}

func TestContainsSpam(t *testing.T) {
	assert.True(t, ContainsSpam("Best CASINO bonuses"))
	assert.True(t, ContainsSpam("Earn $500 guaranteed each week"))
	assert.True(t, ContainsSpam("Want to work from home?"))
	assert.False(t, ContainsSpam("The download page needs a redesign"))
	assert.False(t, ContainsSpam("We need an online booking system for our clinic."))
}
