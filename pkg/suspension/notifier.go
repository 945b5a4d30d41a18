package suspension

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nextmavens/warden/pkg/project"
)

// AuditEntry is one audit-log line emitted after a committed transition.
type AuditEntry struct {
	ProjectID  string
	Action     HistoryAction
	Reason     string
	Notes      string
	Type       Type
	OccurredAt time.Time
}

// AuditLogger is the external audit-trail writer. Implementations must not
// block the caller for long; failures are logged by the outbox and never
// reverse a committed transition.
type AuditLogger interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// Notice is a stakeholder notification about a transition.
type Notice struct {
	Project    *project.Project
	Action     HistoryAction
	Reason     string
	Recipients []string
}

// NotificationDispatcher delivers suspension notices. Best effort: the
// outbox retries and dead-letters failures without touching the
// suspension itself.
type NotificationDispatcher interface {
	SendSuspensionNotice(ctx context.Context, notice Notice) error
}

// LogAuditLog writes audit entries to the structured log. It stands in
// for the platform audit pipeline when no external sink is configured.
type LogAuditLog struct {
	logger *slog.Logger
}

// NewLogAuditLog creates an audit logger backed by slog.
func NewLogAuditLog() *LogAuditLog {
	return &LogAuditLog{logger: slog.Default().With("component", "suspension.audit")}
}

// Append implements AuditLogger.
func (l *LogAuditLog) Append(_ context.Context, entry AuditEntry) error {
	l.logger.Info("suspension audit",
		"project_id", entry.ProjectID,
		"action", string(entry.Action),
		"reason", entry.Reason,
		"notes", entry.Notes,
		"type", string(entry.Type),
		"occurred_at", entry.OccurredAt,
	)
	return nil
}

// LogNotifier logs suspension notices instead of delivering them. Used
// when no delivery backend is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by slog.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: slog.Default().With("component", "suspension.notifier")}
}

// SendSuspensionNotice implements NotificationDispatcher.
func (n *LogNotifier) SendSuspensionNotice(_ context.Context, notice Notice) error {
	name := ""
	if notice.Project != nil {
		name = notice.Project.Name
	}
	n.logger.Info("suspension notice",
		"project", name,
		"action", string(notice.Action),
		"reason", notice.Reason,
		"recipients", len(notice.Recipients),
	)
	return nil
}

// MemoryAuditLog collects audit entries in memory for tests.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

// Append implements AuditLogger.
func (l *MemoryAuditLog) Append(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the collected entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// MemoryNotifier collects notices in memory for tests. A non-nil Err makes
// every send fail, for exercising retry and dead-letter paths.
type MemoryNotifier struct {
	mu      sync.Mutex
	notices []Notice

	// Err, when set, is returned by every SendSuspensionNotice call.
	Err error
}

// NewMemoryNotifier creates an empty in-memory notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// SendSuspensionNotice implements NotificationDispatcher.
func (n *MemoryNotifier) SendSuspensionNotice(_ context.Context, notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.notices = append(n.notices, notice)
	return nil
}

// Notices returns a copy of the collected notices.
func (n *MemoryNotifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.notices))
	copy(out, n.notices)
	return out
}
