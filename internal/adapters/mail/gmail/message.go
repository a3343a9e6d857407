package gmail

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"

	"github.com/bnema/mailbot/internal/domain"
	gmailapi "google.golang.org/api/gmail/v1"
)

// replyDraft fills the reply from the original message and returns the
// References chain to send with it.
func replyDraft(draft domain.Draft, original *gmailapi.Message) (domain.Draft, string) {
	if draft.To == "" {
		draft.To = header(original, "Reply-To")
	}
	if draft.To == "" {
		draft.To = header(original, "From")
	}
	if draft.Subject == "" {
		subject := header(original, "Subject")
		if !strings.HasPrefix(strings.ToLower(subject), "re:") {
			subject = "Re: " + subject
		}
		draft.Subject = subject
	}

	messageID := header(original, "Message-ID")
	references := strings.TrimSpace(header(original, "References") + " " + messageID)
	draft.InReplyTo = messageID
	return draft, references
}

// buildMessage renders a plain-text RFC 5322 message. InReplyTo here is the
// original Message-ID header, not a Gmail id.
func buildMessage(draft domain.Draft, references string) ([]byte, error) {
	to, err := mail.ParseAddressList(draft.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", draft.To, err)
	}
	if strings.TrimSpace(draft.Body) == "" {
		return nil, errors.New("draft body is empty")
	}

	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, addr.String())
	}

	var buf bytes.Buffer
	writeHeader(&buf, "To", strings.Join(recipients, ", "))
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", draft.Subject))
	if draft.InReplyTo != "" {
		writeHeader(&buf, "In-Reply-To", draft.InReplyTo)
	}
	if references != "" {
		writeHeader(&buf, "References", references)
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", `text/plain; charset="UTF-8"`)
	writeHeader(&buf, "Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(draft.Body, "\r\n", "\n"), "\n", "\r\n"))

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	buf.WriteString(name + ": " + value + "\r\n")
}
