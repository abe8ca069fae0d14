package emailalerts

import (
	"strings"
	"testing"
)

const alertHTML = `
<html><body>
<table>
  <tr>
    <td><a href="https://www.linkedin.com/comm/jobs/view/4012345678/?trackingId=abc"><img src="logo.png"></a></td>
    <td>
      <a href="https://www.linkedin.com/comm/jobs/view/4012345678/?trackingId=abc">Senior Backend Engineer</a>
      <p>Initech · Austin, TX</p>
      <p>$150,000 - $180,000/year</p>
      <p>Actively recruiting</p>
    </td>
  </tr>
</table>
<table>
  <tr>
    <td>
      <a href="https://www.linkedin.com/jobs/view/4098765432/">Platform Engineer</a>
      <p>Globex · Remote</p>
    </td>
  </tr>
</table>
<table>
  <tr>
    <td>
      <a href="https://www.linkedin.com/jobs/view/4055555555/">See all jobs</a>
    </td>
  </tr>
</table>
<a href="https://www.linkedin.com/e/unsubscribe">Unsubscribe</a>
</body></html>`

func TestParseAlert_MergesAnchorsByJobID(t *testing.T) {
	jobs, err := parseLinkedInAlertHTML(alertHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs (CTA-only card dropped), got %d: %+v", len(jobs), jobs)
	}

	j := jobs[0]
	if j.Title != "Senior Backend Engineer" {
		t.Errorf("title = %q (logo anchor must not shadow the title anchor)", j.Title)
	}
	if j.Company != "Initech" || j.Location != "Austin, TX" {
		t.Errorf("company/location = %q / %q", j.Company, j.Location)
	}
	if !strings.Contains(j.Salary, "$150,000") {
		t.Errorf("salary = %q", j.Salary)
	}
	if !strings.Contains(j.URL, "/jobs/view/4012345678") {
		t.Errorf("url = %q", j.URL)
	}

	if jobs[1].Company != "Globex" || jobs[1].Location != "Remote" {
		t.Errorf("second card = %+v", jobs[1])
	}
}

func TestUnwrapRedirect(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{
			"https://tracker.example/c?url=https%3A%2F%2Fwww.linkedin.com%2Fjobs%2Fview%2F123%2F",
			"https://www.linkedin.com/jobs/view/123/",
		},
		{
			"https://www.google.com/url?q=https://www.linkedin.com/jobs/view/456/",
			"https://www.linkedin.com/jobs/view/456/",
		},
		{
			"https://www.linkedin.com/jobs/view/789/",
			"https://www.linkedin.com/jobs/view/789/",
		},
	}
	for _, c := range cases {
		if got := unwrapRedirect(c.in); got != c.want {
			t.Errorf("unwrapRedirect(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLooksLikeLinkedInAlert(t *testing.T) {
	if !looksLikeLinkedInAlert("jobalerts-noreply@linkedin.com", "anything", "") {
		t.Error("sender match should suffice")
	}
	if !looksLikeLinkedInAlert("other@example.com", "Your job alert: 8 new jobs",
		`<a href="https://www.linkedin.com/jobs/view/1/">x</a>`) {
		t.Error("subject + body match should suffice")
	}
	if looksLikeLinkedInAlert("newsletter@example.com", "Weekly digest", "hello") {
		t.Error("unrelated mail must not match")
	}
}

func TestStripBadTitleSuffixes(t *testing.T) {
	if got := stripBadTitleSuffixes("Senior Go Engineer Easy Apply"); got != "Senior Go Engineer" {
		t.Errorf("got %q", got)
	}
	if got := stripBadTitleSuffixes("3 connections work here"); got != "" {
		t.Errorf("non-title text should score out, got %q", got)
	}
}

func TestParseRFC822_MultipartAlternative(t *testing.T) {
	raw := strings.Join([]string{
		"From: jobalerts-noreply@linkedin.com",
		"Subject: Your job alert",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="BOUND"`,
		"",
		"--BOUND",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain body",
		"--BOUND",
		"Content-Type: text/html; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"<p>html=20body</p>",
		"--BOUND--",
		"",
	}, "\r\n")

	body, htmlBody, subj := parseRFC822([]byte(raw), "fallback")
	if subj != "Your job alert" {
		t.Errorf("subject = %q", subj)
	}
	if !strings.Contains(body, "plain body") {
		t.Errorf("plain part = %q", body)
	}
	if !strings.Contains(htmlBody, "html body") {
		t.Errorf("quoted-printable html part = %q", htmlBody)
	}
}
