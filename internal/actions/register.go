// Package actions wires the individual action packages into a registry.
package actions

import (
	"log/slog"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/actions/contact"
	"github.com/jkaninda/relay/internal/actions/deal"
	"github.com/jkaninda/relay/internal/actions/followup"
	"github.com/jkaninda/relay/internal/actions/message"
	"github.com/jkaninda/relay/internal/actions/task"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/observability"
	"github.com/jkaninda/relay/internal/outbound"
)

// Deps carries everything the action set needs. SMS and Email may be nil,
// in which case the corresponding tier-2 actions are not registered.
type Deps struct {
	Contacts crm.ContactStore
	Deals    crm.DealStore
	Tasks    crm.TaskStore
	Messages crm.MessageStore
	SMS      outbound.Sender
	Email    outbound.Sender
	Metrics  *observability.MetricsCollector
	Logger   *slog.Logger
}

// NewRegistry builds the full action registry. Called once at startup;
// Register panics on a duplicate name.
func NewRegistry(d Deps) *action.Registry {
	reg := action.NewRegistry()

	reg.Register(contact.NewCreateAction(d.Contacts, d.Logger))
	reg.Register(contact.NewUpdateAction(d.Contacts, d.Logger))
	reg.Register(contact.NewSearchAction(d.Contacts, d.Logger))

	reg.Register(deal.NewCreateAction(d.Deals, d.Contacts, d.Logger))
	reg.Register(deal.NewUpdateStageAction(d.Deals, d.Logger))
	reg.Register(deal.NewSearchAction(d.Deals, d.Logger))

	reg.Register(task.NewCreateAction(d.Tasks, d.Logger))
	reg.Register(task.NewCompleteAction(d.Tasks, d.Logger))
	reg.Register(task.NewSearchAction(d.Tasks, d.Logger))

	reg.Register(followup.New(d.Contacts, d.Tasks, d.Logger))

	if d.SMS != nil {
		reg.Register(message.NewSendSMSAction(d.SMS, d.Messages, d.Metrics, d.Logger))
	}
	if d.Email != nil {
		reg.Register(message.NewSendEmailAction(d.Email, d.Messages, d.Metrics, d.Logger))
	}

	return reg
}
