package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var reportReadyHTML = template.Must(template.New("reportReady").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; max-width: 600px; margin: 0 auto;">
  <h2>Your diagnostic report is ready</h2>
  <p>We analyzed {{.FileCount}} document{{if ne .FileCount 1}}s{{end}} and your report is ready to view.</p>
  <p style="margin: 28px 0;">
    <a href="{{.ReportURL}}" style="background: #1f2933; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 4px;">View your report</a>
  </p>
  <p style="color: #616e7c; font-size: 13px;">This link is valid for 7 days. If the button does not work, copy this address into your browser:<br>{{.ReportURL}}</p>
</body>
</html>
`))

var runFailedHTML = template.Must(template.New("runFailed").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; max-width: 600px; margin: 0 auto;">
  <h2>We could not complete your report</h2>
  <p>Something went wrong while generating your diagnostic report: {{.Reason}}.</p>
  <p>Your purchase is safe. Our team has been notified and we will retry shortly; you do not need to do anything.</p>
  <p style="color: #616e7c; font-size: 13px;">Reference: {{.AnalysisID}}</p>
</body>
</html>
`))

// ReportReady builds the success notification linking to the stored report.
func ReportReady(to, reportURL string, fileCount int) (Message, error) {
	var buf bytes.Buffer
	err := reportReadyHTML.Execute(&buf, struct {
		ReportURL string
		FileCount int
	}{reportURL, fileCount})
	if err != nil {
		return Message{}, fmt.Errorf("mailer: report ready template: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Your diagnostic report is ready",
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Your diagnostic report is ready.\n\nView it here: %s\n\nThis link is valid for 7 days.", reportURL),
	}, nil
}

// RunFailed builds the failure notification for a run that could not finish.
func RunFailed(to, reason, analysisID string) (Message, error) {
	var buf bytes.Buffer
	err := runFailedHTML.Execute(&buf, struct {
		Reason     string
		AnalysisID string
	}{reason, analysisID})
	if err != nil {
		return Message{}, fmt.Errorf("mailer: run failed template: %w", err)
	}
	return Message{
		To:      to,
		Subject: "We could not complete your report",
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Something went wrong while generating your report: %s.\nYour purchase is safe and we will retry shortly.\nReference: %s", reason, analysisID),
	}, nil
}
