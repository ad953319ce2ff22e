package services

import (
	"bytes"
	"html/template"
)

const verificationSubject = "Please verify your email"

var verificationTemplate = template.Must(template.New("email_verify").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <h2>Confirm your email address</h2>
    <p>Thanks for signing up! Click the button below to activate your account.</p>
    <p>
      <a href="{{.ConfirmURL}}" style="background:#4f46e5;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Verify email</a>
    </p>
    <p>Or paste this link into your browser:<br>{{.ConfirmURL}}</p>
    <p style="color:#666;font-size:12px;">The link expires in 24 hours. If you did not create an account, ignore this email.</p>
  </body>
</html>
`))

func renderVerificationEmail(confirmURL string) (string, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, struct{ ConfirmURL string }{confirmURL}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
