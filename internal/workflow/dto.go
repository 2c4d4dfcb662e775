package workflow

// SubmitActionDTO is the request body of POST /api/v1/workflows/actions.
type SubmitActionDTO struct {
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Action     string            `json:"action"`
	Comment    string            `json:"comment,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (dto SubmitActionDTO) ToRequest() ActionRequest {
	return ActionRequest{
		EntityType: dto.EntityType,
		EntityID:   dto.EntityID,
		Action:     dto.Action,
		Comment:    dto.Comment,
		Attributes: dto.Attributes,
	}
}

type TransitionResponse struct {
	Success        bool         `json:"success"`
	InstanceID     string       `json:"instanceId"`
	EntityType     string       `json:"entityType"`
	EntityID       string       `json:"entityId"`
	PreviousState  string       `json:"previousState"`
	NewState       string       `json:"newState"`
	NextAssigneeID *string      `json:"nextAssigneeId"`
	Sequence       int64        `json:"sequence"`
	SideEffects    []SideEffect `json:"sideEffects"`
}

func NewTransitionResponse(res *TransitionResult) TransitionResponse {
	effects := res.SideEffects
	if effects == nil {
		effects = []SideEffect{}
	}
	return TransitionResponse{
		Success:        true,
		InstanceID:     res.Instance.ID,
		EntityType:     res.Instance.EntityType,
		EntityID:       res.Instance.EntityID,
		PreviousState:  res.PreviousState,
		NewState:       res.NewState,
		NextAssigneeID: res.NextAssigneeID,
		Sequence:       res.Record.Sequence,
		SideEffects:    effects,
	}
}

type InstanceResponse struct {
	Instance *Instance          `json:"instance"`
	History  []TransitionRecord `json:"history"`
}

type ActionsResponse struct {
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Actions    []ActionOption `json:"actions"`
}

type StateResponse struct {
	Name     string `json:"name"`
	Terminal bool   `json:"terminal"`
}

type TransitionRuleResponse struct {
	From               string       `json:"from"`
	Action             string       `json:"action"`
	To                 string       `json:"to"`
	RequiredPermission string       `json:"requiredPermission"`
	Assignee           AssigneeRule `json:"assignee"`
}

type DefinitionResponse struct {
	EntityType  string                   `json:"entityType"`
	Resource    string                   `json:"resource"`
	Version     int                      `json:"version"`
	Initial     string                   `json:"initial"`
	DocumentOn  string                   `json:"documentOn,omitempty"`
	States      []StateResponse          `json:"states"`
	Transitions []TransitionRuleResponse `json:"transitions"`
}

func NewDefinitionResponse(d *Definition) DefinitionResponse {
	resp := DefinitionResponse{
		EntityType: d.EntityType,
		Resource:   d.Resource,
		Version:    d.Version,
		Initial:    d.Initial,
		DocumentOn: d.DocumentOn,
	}
	for _, s := range d.States {
		resp.States = append(resp.States, StateResponse{Name: s.Name, Terminal: s.Terminal})
	}
	for _, t := range d.Transitions {
		resp.Transitions = append(resp.Transitions, TransitionRuleResponse{
			From:               t.From,
			Action:             t.Action,
			To:                 t.To,
			RequiredPermission: t.Required.String(),
			Assignee:           t.Assignee,
		})
	}
	return resp
}
