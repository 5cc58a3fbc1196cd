package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{- define "activation" -}}
Hello, {{.User.Username}}!

You have registered on the bulletin board.
To activate your account, open this link:

{{.Link}}

Goodbye!
{{- end}}

{{- define "new_comment" -}}
Hello, {{.User.Username}}!

{{.Comment.Author}} left a comment on your listing "{{.Listing.Title}}":

{{.Comment.Content}}

Read it here: {{.Link}}

Goodbye!
{{- end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}
