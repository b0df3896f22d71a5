// ABOUTME: Feed renderer turning an ordered item list into the feed payload
// ABOUTME: Uses text/template so field text is emitted without escaping

package feed

import (
	"bytes"
	"text/template"
)

const itemTemplate = `{{range .}}<item>
  <title>{{.Title}}</title>
  <link>{{.Link}}</link>
  <description>{{.Description}}</description>
  <dc:creator>{{.Creator}}</dc:creator>
  <dc:date>{{.Date}}</dc:date>
</item>
{{end}}`

var itemsTmpl = template.Must(template.New("items").Parse(itemTemplate))

// Render returns the payload for items in the order given. An empty list
// renders an empty payload.
func Render(items []Item) []byte {
	if len(items) == 0 {
		return []byte{}
	}

	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail and the template only touches Item fields.
	if err := itemsTmpl.Execute(&buf, items); err != nil {
		panic("feed: rendering items: " + err.Error())
	}
	return buf.Bytes()
}
