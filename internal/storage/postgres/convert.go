package postgres

import (
	"encoding/json"

	"github.com/jkaninda/relay/internal/domain"
)

func toOrgDomain(m *OrgModel) *domain.Org {
	return &domain.Org{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		CreatedAt: m.CreatedAt,
	}
}

func toContactModel(c *domain.Contact) ContactModel {
	return ContactModel{
		ID:        c.ID,
		OrgID:     c.OrgID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toContactDomain(m *ContactModel) *domain.Contact {
	return &domain.Contact{
		ID:        m.ID,
		OrgID:     m.OrgID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Company:   m.Company,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toDealModel(d *domain.Deal) DealModel {
	return DealModel{
		ID:        d.ID,
		OrgID:     d.OrgID,
		ContactID: d.ContactID,
		Title:     d.Title,
		Stage:     d.Stage,
		AmountUSD: d.AmountUSD,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toDealDomain(m *DealModel) *domain.Deal {
	return &domain.Deal{
		ID:        m.ID,
		OrgID:     m.OrgID,
		ContactID: m.ContactID,
		Title:     m.Title,
		Stage:     m.Stage,
		AmountUSD: m.AmountUSD,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toTaskModel(t *domain.Task) TaskModel {
	return TaskModel{
		ID:          t.ID,
		OrgID:       t.OrgID,
		ContactID:   t.ContactID,
		Title:       t.Title,
		Notes:       t.Notes,
		DueAt:       t.DueAt,
		Done:        t.Done,
		CompletedAt: t.CompletedAt,
		RemindedAt:  t.RemindedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskDomain(m *TaskModel) *domain.Task {
	return &domain.Task{
		ID:          m.ID,
		OrgID:       m.OrgID,
		ContactID:   m.ContactID,
		Title:       m.Title,
		Notes:       m.Notes,
		DueAt:       m.DueAt,
		Done:        m.Done,
		CompletedAt: m.CompletedAt,
		RemindedAt:  m.RemindedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toMessageModel(m *domain.OutboundMessage) OutboundMessageModel {
	return OutboundMessageModel{
		ID:        m.ID,
		OrgID:     m.OrgID,
		ContactID: m.ContactID,
		Channel:   m.Channel,
		Recipient: m.Recipient,
		Subject:   m.Subject,
		Body:      m.Body,
		Status:    m.Status,
		SentAt:    m.SentAt,
		CreatedAt: m.CreatedAt,
	}
}

func toMessageDomain(m *OutboundMessageModel) *domain.OutboundMessage {
	return &domain.OutboundMessage{
		ID:        m.ID,
		OrgID:     m.OrgID,
		ContactID: m.ContactID,
		Channel:   m.Channel,
		Recipient: m.Recipient,
		Subject:   m.Subject,
		Body:      m.Body,
		Status:    m.Status,
		SentAt:    m.SentAt,
		CreatedAt: m.CreatedAt,
	}
}

func toRunModel(r *domain.Run) (RunModel, error) {
	actions := make([]RunActionModel, 0, len(r.Actions))
	for i := range r.Actions {
		m, err := toRunActionModel(&r.Actions[i])
		if err != nil {
			return RunModel{}, err
		}
		actions = append(actions, m)
	}
	return RunModel{
		ID:               r.ID,
		OrgID:            r.OrgID,
		Status:           string(r.Status),
		ActionsSucceeded: r.ActionsSucceeded,
		ActionsFailed:    r.ActionsFailed,
		Actions:          actions,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

func toRunActionModel(a *domain.RunAction) (RunActionModel, error) {
	params := a.Params
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return RunActionModel{}, err
	}
	return RunActionModel{
		ID:       a.ID,
		RunID:    a.RunID,
		Seq:      a.Seq,
		Name:     a.Name,
		Params:   JSONB(raw),
		RiskTier: a.RiskTier,
		Status:   string(a.Status),
		Message:  a.Message,
	}, nil
}

func toRunDomain(m *RunModel) (*domain.Run, error) {
	actions := make([]domain.RunAction, 0, len(m.Actions))
	for i := range m.Actions {
		a, err := toRunActionDomain(&m.Actions[i])
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	return &domain.Run{
		ID:               m.ID,
		OrgID:            m.OrgID,
		Status:           domain.RunStatus(m.Status),
		ActionsSucceeded: m.ActionsSucceeded,
		ActionsFailed:    m.ActionsFailed,
		Actions:          actions,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

func toRunActionDomain(m *RunActionModel) (*domain.RunAction, error) {
	params := map[string]any{}
	if len(m.Params) > 0 {
		if err := json.Unmarshal([]byte(m.Params), &params); err != nil {
			return nil, err
		}
	}
	return &domain.RunAction{
		ID:       m.ID,
		RunID:    m.RunID,
		Seq:      m.Seq,
		Name:     m.Name,
		Params:   params,
		RiskTier: m.RiskTier,
		Status:   domain.RunActionStatus(m.Status),
		Message:  m.Message,
	}, nil
}
