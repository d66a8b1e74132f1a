package gmail

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/provider"
)

// mapMessage converts a Gmail API Message into the provider-independent
// form. Messages with no usable sender or send date are rejected rather
// than stored half-empty.
func mapMessage(msg *gmailapi.Message) (*provider.NormalizedMessage, error) {
	var headers []*gmailapi.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	from := parseAddress(findHeader(headers, "From"))
	if from.Email == "" {
		return nil, fmt.Errorf("message %s has no parseable From header", msg.Id)
	}

	sentAt := parseDate(findHeader(headers, "Date"))
	if sentAt.IsZero() {
		// The API's internal date is millisecond epoch and always present.
		if msg.InternalDate == 0 {
			return nil, fmt.Errorf("message %s has no usable date", msg.Id)
		}
		sentAt = time.UnixMilli(msg.InternalDate).UTC()
	}

	text, html := extractBody(msg.Payload)

	norm := &provider.NormalizedMessage{
		ProviderMessageID: msg.Id,
		ProviderThreadID:  msg.ThreadId,
		From:              from,
		Subject:           findHeader(headers, "Subject"),
		BodyText:          text,
		BodyHTML:          html,
		SentAt:            sentAt,
	}
	norm.Recipients = append(norm.Recipients, mapRecipients(findHeader(headers, "To"), domain.RoleTo)...)
	norm.Recipients = append(norm.Recipients, mapRecipients(findHeader(headers, "Cc"), domain.RoleCc)...)
	norm.Recipients = append(norm.Recipients, mapRecipients(findHeader(headers, "Bcc"), domain.RoleBcc)...)
	return norm, nil
}

func mapRecipients(header string, role domain.RecipientRole) []domain.Recipient {
	addrs := parseAddressList(header)
	recipients := make([]domain.Recipient, 0, len(addrs))
	for _, a := range addrs {
		recipients = append(recipients, domain.Recipient{
			Address: a.Email,
			Name:    a.Name,
			Role:    role,
		})
	}
	return recipients
}

// findHeader performs a case-insensitive lookup for a header value.
func findHeader(headers []*gmailapi.MessagePartHeader, name string) string {
	lower := strings.ToLower(name)
	for _, h := range headers {
		if strings.ToLower(h.Name) == lower {
			return h.Value
		}
	}
	return ""
}

// parseAddress parses an RFC 5322 address string into a domain Address.
// Falls back to treating the entire string as a bare email if parsing fails.
func parseAddress(s string) domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Address{}
	}

	addr, err := mail.ParseAddress(s)
	if err != nil {
		// Fallback: treat as bare email
		return domain.Address{Email: s}
	}
	return domain.Address{
		Name:  addr.Name,
		Email: addr.Address,
	}
}

// parseAddressList parses a comma-separated list of RFC 5322 addresses.
func parseAddressList(s string) []domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parsed, err := mail.ParseAddressList(s)
	if err != nil {
		// Fallback: split by comma and parse individually
		parts := strings.Split(s, ",")
		var addrs []domain.Address
		for _, p := range parts {
			if a := parseAddress(p); a.Email != "" {
				addrs = append(addrs, a)
			}
		}
		return addrs
	}

	addrs := make([]domain.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, domain.Address{
			Name:  a.Name,
			Email: a.Address,
		})
	}
	return addrs
}

// parseDate tries multiple date formats commonly used in email headers.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC1123Z,                     // "Mon, 02 Jan 2006 15:04:05 -0700"
		time.RFC1123,                      // "Mon, 02 Jan 2006 15:04:05 MST"
		time.RFC822Z,                      // "02 Jan 06 15:04 -0700"
		time.RFC822,                       // "02 Jan 06 15:04 MST"
		"Mon, 2 Jan 2006 15:04:05 -0700", // single-digit day
		"Mon, 2 Jan 2006 15:04:05 MST",   // single-digit day with named zone
		"2 Jan 2006 15:04:05 -0700",      // no weekday
		"2006-01-02T15:04:05Z07:00",      // ISO 8601
		"Mon, 02 Jan 2006 15:04:05 -0700 (MST)", // with parenthesized zone
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// extractBody recursively extracts text/plain and text/html content from a message payload.
func extractBody(payload *gmailapi.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	// If this part has sub-parts, recurse into them
	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			t, h := extractBody(part)
			if text == "" && t != "" {
				text = t
			}
			if html == "" && h != "" {
				html = h
			}
		}
		return text, html
	}

	// Leaf part: decode the body
	data := ""
	if payload.Body != nil {
		data = decodeBase64URL(payload.Body.Data)
	}

	switch payload.MimeType {
	case "text/plain":
		return data, ""
	case "text/html":
		return "", data
	}
	return "", ""
}

// decodeBase64URL decodes Gmail's URL-safe base64 encoded strings (without padding).
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return ""
	}
	return string(data)
}
