// Package tracking builds the per-send tracking links embedded in messages.
//
// The URL shape is {base_url}?id={uuid}&recipient={identifier} and must stay
// stable: a click logger outside this repo parses it back.
package tracking

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Generate returns a fresh tracking URL and its id.
func Generate(baseURL, recipient string) (link string, id string) {
	id = uuid.NewString()
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
		if strings.HasSuffix(baseURL, "?") || strings.HasSuffix(baseURL, "&") {
			sep = ""
		}
	}
	link = baseURL + sep + "id=" + url.QueryEscape(id) + "&recipient=" + url.QueryEscape(recipient)
	return link, id
}

// Parse extracts the id and recipient from a link made by Generate.
func Parse(link string) (id, recipient string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", err
	}
	q := u.Query()
	id = q.Get("id")
	if id == "" {
		return "", "", errors.New("tracking link has no id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", err
	}
	return id, q.Get("recipient"), nil
}
