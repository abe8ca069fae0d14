package emailalerts

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// Size caps for pathological messages; a real alert digest is a few hundred KB.
const (
	maxMessageBody = 25 << 20
	maxPartBody    = 6 << 20
)

// mimeBodies accumulates the best text/plain and text/html candidates seen
// while walking a message. Digests often carry several alternatives of each
// kind; the longest is the fully rendered variant.
type mimeBodies struct {
	plain string
	html  string
}

func (b *mimeBodies) offer(media, content string) {
	if strings.HasPrefix(media, "text/html") {
		if len(content) > len(b.html) {
			b.html = content
		}
		return
	}
	if len(content) > len(b.plain) {
		b.plain = content
	}
}

// parseRFC822 splits a raw message into its text/plain and text/html bodies.
// A message whose headers cannot be parsed is treated as bare plaintext.
func parseRFC822(raw []byte, fallbackSubject string) (bodyText, htmlBody, subject string) {
	if len(raw) == 0 {
		return "", "", fallbackSubject
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", fallbackSubject
	}

	subject = strings.TrimSpace(msg.Header.Get("Subject"))
	if subject == "" {
		subject = fallbackSubject
	}

	payload, _ := io.ReadAll(io.LimitReader(msg.Body, maxMessageBody))

	var bodies mimeBodies
	walkEntity(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), payload, &bodies)

	if bodies.plain == "" && bodies.html == "" {
		bodies.plain = string(payload)
	}
	return bodies.plain, bodies.html, subject
}

// walkEntity recurses into multipart containers and offers every text leaf
// to the accumulator. Non-text leaves (inline images, attachments) are
// skipped so a decoded attachment can never shadow the actual body.
func walkEntity(contentType, transferEnc string, body []byte, out *mimeBodies) {
	media, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		out.offer("", string(unwrapTransferEncoding(body, transferEnc)))
		return
	}
	media = strings.ToLower(media)

	if !strings.HasPrefix(media, "multipart/") {
		if media == "" || strings.HasPrefix(media, "text/") {
			out.offer(media, string(unwrapTransferEncoding(body, transferEnc)))
		}
		return
	}

	boundary := params["boundary"]
	if boundary == "" {
		out.offer("", string(unwrapTransferEncoding(body, transferEnc)))
		return
	}

	parts := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := parts.NextPart()
		if err != nil {
			return
		}
		content, _ := io.ReadAll(io.LimitReader(part, maxMessageBody))
		walkEntity(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), content, out)
	}
}

// unwrapTransferEncoding reverses base64 and quoted-printable bodies;
// anything else (7bit, 8bit, binary) passes through untouched.
func unwrapTransferEncoding(b []byte, enc string) []byte {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
	case "quoted-printable":
		r = quotedprintable.NewReader(bytes.NewReader(b))
	default:
		return b
	}
	out, _ := io.ReadAll(io.LimitReader(r, maxPartBody))
	return out
}

// decodeRFC2047 renders encoded-word subjects ("=?utf-8?...?=") readable.
func decodeRFC2047(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
