package mail

import (
	"bytes"
	"html/template"
	texttemplate "text/template"

	"github.com/lmoretti/birchside/internal/workflow"
)

var welcomeHTML = template.Must(template.New("welcome").Parse(`<html>
<body>
  <h2>Welcome{{if .Name}}, {{.Name}}{{end}}!</h2>
  <p>Thanks for signing in to the Birchside Neighbors portal. You can now
  share an endorsement, file a help request, and follow up with our team.</p>
  <p>Add your street address to your profile to unlock endorsements.</p>
  <p>— The Birchside team</p>
</body>
</html>`))

var welcomeText = texttemplate.Must(texttemplate.New("welcome").Parse(
	`Welcome{{if .Name}}, {{.Name}}{{end}}!

Thanks for signing in to the Birchside Neighbors portal. You can now share
an endorsement, file a help request, and follow up with our team.

Add your street address to your profile to unlock endorsements.

— The Birchside team
`))

var replyHTML = template.Must(template.New("reply").Parse(`<html>
<body>
  <h2>{{.ReplyAuthor}} replied to your request</h2>
  <p>Hi{{if .RecipientName}} {{.RecipientName}}{{end}}, there's a new reply on
  <strong>{{.RequestTitle}}</strong> ({{.Elapsed}} after you filed it).</p>
  <hr>
  {{range .Thread}}
  <p><strong>{{.Author}}</strong> — {{.SentAt.Format "Jan 2, 3:04 PM"}}<br>{{.Content}}</p>
  {{end}}
</body>
</html>`))

var replyText = texttemplate.Must(texttemplate.New("reply").Parse(
	`{{.ReplyAuthor}} replied to your request "{{.RequestTitle}}"
({{.Elapsed}} after you filed it).

{{range .Thread}}{{.Author}} — {{.SentAt.Format "Jan 2, 3:04 PM"}}
{{.Content}}

{{end}}`))

type welcomeData struct {
	Name string
}

func renderWelcome(name string) (html, text string, err error) {
	data := welcomeData{Name: name}
	var hbuf, tbuf bytes.Buffer
	if err := welcomeHTML.Execute(&hbuf, data); err != nil {
		return "", "", err
	}
	if err := welcomeText.Execute(&tbuf, data); err != nil {
		return "", "", err
	}
	return hbuf.String(), tbuf.String(), nil
}

func renderRequestReply(n workflow.ReplyNotification) (html, text string, err error) {
	var hbuf, tbuf bytes.Buffer
	if err := replyHTML.Execute(&hbuf, n); err != nil {
		return "", "", err
	}
	if err := replyText.Execute(&tbuf, n); err != nil {
		return "", "", err
	}
	return hbuf.String(), tbuf.String(), nil
}
