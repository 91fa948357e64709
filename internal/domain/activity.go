package domain

import "time"

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout:
		return true
	}
	return false
}

const (
	ResourcePart        = "part"
	ResourcePartRequest = "part_request"
	ResourcePartQuote   = "part_quote"
	ResourceSession     = "session"
)

// ActivityLogEntry is append-only; nothing updates or deletes a row once written.
type ActivityLogEntry struct {
	Seq          int64     `db:"seq" json:"-"`
	ID           string    `db:"id" json:"id"`
	Organization string    `db:"organization" json:"organization"`
	ActorID      string    `db:"actor_id" json:"actorId"`
	ActorName    string    `db:"actor_name" json:"actorName"`
	Action       Action    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resourceType"`
	ResourceID   string    `db:"resource_id" json:"resourceId"`
	Description  string    `db:"description" json:"description"`
	Details      string    `db:"details" json:"details,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Actor identifies who performed a mutation.
type Actor struct {
	ID           string
	Name         string
	Organization string
}

// System is the actor used by background jobs.
var System = Actor{ID: "system", Name: "System"}
