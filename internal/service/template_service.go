// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/campaigner/internal/channel"
)

const (
	NamePlaceholder         = "[Name]"
	TrackingLinkPlaceholder = "[Tracking Link]"
)

// RenderTemplate replaces every [key] in template with its value.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "["+k+"]", v)
	}
	return result
}

// Personalize fills the [Name] placeholder.
func Personalize(template, name string) string {
	return RenderTemplate(template, map[string]string{"Name": name})
}

// PreviewText shows the message with placeholders left in.
func PreviewText(template string) string {
	return previewFor(NamePlaceholder, template)
}

// previewFor puts the link placeholder on its own line so it stays readable.
func previewFor(name, body string) string {
	return channel.ComposeText(name, body, "") + "\n" + TrackingLinkPlaceholder
}
