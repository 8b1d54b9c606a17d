package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
)

// Service sends workflow emails. Delivery is fire-and-forget from the
// caller's perspective: a failure must never roll back a committed state
// change.
type Service interface {
	SendSignupLink(ctx context.Context, to, name string, kind model.RegistrationKind, signupURL string) error
	SendPrescriptionReminder(ctx context.Context, to, name, medicationName, shortCode string) error
}

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

type service struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg Config) Service {
	return &service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.FromAddress,
	}
}

var signupSubjects = map[model.RegistrationKind]string{
	model.RegistrationGP:                           "You have been registered as a GP",
	model.RegistrationPatient:                      "Complete your patient registration",
	model.RegistrationMedicalPracticeAdministrator: "Your medical practice has been registered",
	model.RegistrationHeadPharmacist:               "Your pharmacy has been registered",
	model.RegistrationPharmacist:                   "You have been registered as a pharmacist",
	model.RegistrationPharmacyTechnician:           "You have been registered as a pharmacy technician",
}

var signupTemplate = template.Must(template.New("signup").Parse(
	`Hello {{.Name}},

An account has been created for you. Finish your registration here:

{{.URL}}

If you were not expecting this email you can ignore it.
`))

var reminderTemplate = template.Must(template.New("reminder").Parse(
	`Hello {{.Name}},

Your repeat prescription for {{.Medication}} is due for collection soon.
Quote code {{.ShortCode}} at your pharmacy.
`))

func (s *service) SendSignupLink(_ context.Context, to, name string, kind model.RegistrationKind, signupURL string) error {
	subject, ok := signupSubjects[kind]
	if !ok {
		return fmt.Errorf("no signup template for registration kind %q", kind)
	}

	var body bytes.Buffer
	if err := signupTemplate.Execute(&body, struct {
		Name string
		URL  string
	}{Name: name, URL: signupURL}); err != nil {
		return fmt.Errorf("failed to render signup email: %w", err)
	}

	return s.send(to, subject, body.String())
}

func (s *service) SendPrescriptionReminder(_ context.Context, to, name, medicationName, shortCode string) error {
	var body bytes.Buffer
	if err := reminderTemplate.Execute(&body, struct {
		Name       string
		Medication string
		ShortCode  string
	}{Name: name, Medication: medicationName, ShortCode: shortCode}); err != nil {
		return fmt.Errorf("failed to render reminder email: %w", err)
	}

	return s.send(to, "Your repeat prescription is due", body.String())
}

func (s *service) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
