// Package notify is the post-scan notification collaborator
// (SPEC_FULL.md §6.2): Notify(ScanLog, entries, pendingChanges) -> void.
// Grounded on the teacher's service/email.go mailer, repurposed from a
// per-conflict email into a per-scan summary.
package notify

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/snapshotengine/dbsync/internal/config"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// Notifier sends the post-scan summary email. The core never retries a
// failed Notify call — a notification error is logged and swallowed, it
// MUST NOT fail a scan (spec.md §7).
type Notifier struct {
	cfg       config.EmailConfig
	recipient string
}

func New(cfg config.EmailConfig, recipient string) *Notifier {
	return &Notifier{cfg: cfg, recipient: recipient}
}

// Notify emails a summary of one finished scan. Errors are returned to the
// caller (the orchestrator), which is responsible for swallowing them.
func (n *Notifier) Notify(log repository.ScanLog, entries []repository.ScanEntry, pending []repository.DetectedChange) error {
	if n.recipient == "" {
		return nil
	}

	subject := fmt.Sprintf("Scan #%d %s", log.ID, log.Status)
	body := renderSummary(log, entries, pending)

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: send scan summary: %w", err)
	}
	return nil
}

func renderSummary(log repository.ScanLog, entries []repository.ScanEntry, pending []repository.DetectedChange) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Scan #%d — %s</h2>", log.ID, log.Status)
	fmt.Fprintf(&b, "<p>Tenants: %d, Environments: %d, Objects scanned: %d, Changes: %d, Errors: %d</p>",
		log.TotalTenants, log.TotalEnvironments, log.TotalObjectsScanned, log.TotalChangesDetected, log.TotalErrors)

	if log.ErrorSummary != nil && *log.ErrorSummary != "" {
		fmt.Fprintf(&b, "<pre>%s</pre>", *log.ErrorSummary)
	}

	b.WriteString("<h3>Targets</h3><ul>")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "<li>%s/%s: %s (found=%d new=%d modified=%d deleted=%d)</li>",
			e.TenantCode, e.Environment, status, e.ObjectsFound, e.ObjectsNew, e.ObjectsModified, e.ObjectsDeleted)
	}
	b.WriteString("</ul>")

	if len(pending) > 0 {
		b.WriteString("<h3>Pending changes</h3><ul>")
		for _, c := range pending {
			fmt.Fprintf(&b, "<li>%s/%s %s: %s</li>", c.TenantCode, c.Environment, c.ChangeType, c.FullName)
		}
		b.WriteString("</ul>")
	}

	b.WriteString("</body></html>")
	return b.String()
}
