// Package reminder implements the due-task reminder digest. It runs as a
// background goroutine on a cron schedule, scans for open tasks that are due
// and not yet reminded, emails a digest, and stamps the tasks so the next
// cycle skips them.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
	"github.com/jkaninda/relay/internal/observability"
	"github.com/jkaninda/relay/internal/outbound"
)

// Config configures the reminder poller.
type Config struct {
	Schedule  string // Cron expression. Default: "*/5 * * * *".
	Recipient string // Digest email address.
}

// Poller emails reminder digests for due tasks.
type Poller struct {
	tasks     crm.TaskStore
	sender    outbound.Sender
	recipient string
	schedule  cron.Schedule
	metrics   *observability.MetricsCollector
	logger    *slog.Logger
}

// New creates a Poller. The sender must be an email sender; the cron
// expression uses standard five-field syntax.
func New(cfg Config, tasks crm.TaskStore, sender outbound.Sender, metrics *observability.MetricsCollector, logger *slog.Logger) (*Poller, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = "*/5 * * * *"
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Poller{
		tasks:     tasks,
		sender:    sender,
		recipient: cfg.Recipient,
		schedule:  sched,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Start begins the reminder loop. Returns a cancel function.
func (p *Poller) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		p.logger.InfoContext(ctx, "reminder poller started",
			slog.String("recipient", p.recipient),
		)

		for {
			next := p.schedule.Next(time.Now().UTC())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				p.logger.Info("reminder poller stopped")
				return
			case <-timer.C:
				p.tick(ctx)
			}
		}
	}()

	return cancel
}

// tick runs one digest cycle.
func (p *Poller) tick(ctx context.Context) {
	now := time.Now().UTC()

	due, err := p.tasks.ListDueUnreminded(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "listing due tasks failed", slog.String("error", err.Error()))
		return
	}
	if len(due) == 0 {
		return
	}

	msg := &outbound.Message{
		Recipient: p.recipient,
		Subject:   fmt.Sprintf("%d task(s) due", len(due)),
		Body:      digestBody(due),
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "reminder digest send failed", slog.String("error", err.Error()))
		return
	}

	ids := make([]uuid.UUID, 0, len(due))
	for i := range due {
		ids = append(ids, due[i].ID)
	}
	if err := p.tasks.MarkReminded(ctx, ids, now); err != nil {
		// Tasks stay unreminded and will be re-sent next cycle.
		p.logger.ErrorContext(ctx, "marking tasks reminded failed", slog.String("error", err.Error()))
		return
	}

	if p.metrics != nil {
		p.metrics.RemindersSentTotal.Add(float64(len(due)))
	}
	p.logger.InfoContext(ctx, "reminder digest sent",
		slog.Int("tasks", len(due)),
		slog.String("recipient", p.recipient),
	)
}

// digestBody renders the digest as plain text, tasks grouped by tenant and
// ordered by due time within each group.
func digestBody(tasks []domain.Task) string {
	byOrg := make(map[uuid.UUID][]domain.Task)
	for _, t := range tasks {
		byOrg[t.OrgID] = append(byOrg[t.OrgID], t)
	}

	orgs := make([]uuid.UUID, 0, len(byOrg))
	for id := range byOrg {
		orgs = append(orgs, id)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].String() < orgs[j].String() })

	var sb strings.Builder
	sb.WriteString("The following tasks are due:\n")
	for _, orgID := range orgs {
		group := byOrg[orgID]
		sort.Slice(group, func(i, j int) bool {
			return group[i].DueAt.Before(*group[j].DueAt)
		})
		if len(orgs) > 1 {
			fmt.Fprintf(&sb, "\nTenant %s:\n", orgID)
		}
		for _, t := range group {
			fmt.Fprintf(&sb, "- %s (due %s)\n", t.Title, t.DueAt.Format(time.RFC1123))
		}
	}
	return sb.String()
}
