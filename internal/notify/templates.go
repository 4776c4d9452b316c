package notify

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

// emailData feeds both body templates.
type emailData struct {
	Warning    bool
	Percentage int
	Threshold  int
	Time       string
	StatusText string
	Color      htmltemplate.CSS
	Header     htmltemplate.CSS
	HasImage   bool
}

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
{{- if .Warning}}
<div style="background-color: #dc3545; color: white; padding: 15px; text-align: center; font-size: 18px; font-weight: bold;">
⚠️ LOW OIL WARNING - ACTION REQUIRED ⚠️
</div>
{{- end}}
<div style="padding: 20px;">
<h2 style="color: {{.Header}};">Oil Level {{if .Warning}}Alert{{else}}Report{{end}}</h2>
<p>{{if .Warning}}<strong>Your oil tank is running low! Please schedule an oil delivery soon.</strong>{{else}}Your oil level is within normal range.{{end}}</p>

<table style="border-collapse: collapse; margin: 20px 0;">
<tr>
    <td style="padding: 10px; border: 1px solid #ddd;"><strong>Current Level:</strong></td>
    <td style="padding: 10px; border: 1px solid #ddd; font-size: 18px; font-weight: bold; color: {{.Color}};">{{.Percentage}}%</td>
</tr>
<tr>
    <td style="padding: 10px; border: 1px solid #ddd;"><strong>Status:</strong></td>
    <td style="padding: 10px; border: 1px solid #ddd; color: {{.Color}}; font-weight: bold;">{{.StatusText}}</td>
</tr>
<tr>
    <td style="padding: 10px; border: 1px solid #ddd;"><strong>Alert Threshold:</strong></td>
    <td style="padding: 10px; border: 1px solid #ddd;">{{.Threshold}}%</td>
</tr>
<tr>
    <td style="padding: 10px; border: 1px solid #ddd;"><strong>Time:</strong></td>
    <td style="padding: 10px; border: 1px solid #ddd;">{{.Time}}</td>
</tr>
</table>
{{- if .HasImage}}

<p><strong>Gauge Reading:</strong></p>
<img src="cid:gauge_image" style="max-width: 600px; border: 2px solid #ccc;">
{{- end}}

<hr style="margin-top: 30px;">
<p style="font-size: 12px; color: #666;">This is an automated message from your oil level monitoring system.</p>
</div>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`
{{- if .Warning -}}
****************************************
⚠️  LOW OIL WARNING - ACTION REQUIRED  ⚠️
****************************************

Your oil tank is running low!
{{- else -}}
Oil Level Status Report
=======================

Your oil level is within normal range.
{{- end}}

Current Level: {{.Percentage}}%
Status: {{.StatusText}}
Alert Threshold: {{.Threshold}}%
Time: {{.Time}}
{{- if .Warning}}

Please schedule an oil delivery soon.
{{- end}}

---
This is an automated message from your oil level monitoring system.
`))
