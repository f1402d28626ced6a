package dto

import "time"

// FailedDocument records a document dropped from a cycle.
type FailedDocument struct {
	Source string `json:"source"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// FailedGroup records a group whose reconciliation was rolled back.
type FailedGroup struct {
	Group  string `json:"group"`
	Source string `json:"source"`
	Error  string `json:"error"`
}

// CycleReport summarises one synchronisation cycle.
type CycleReport struct {
	CycleID          string           `json:"cycleId"`
	StartedAt        time.Time        `json:"startedAt"`
	FinishedAt       time.Time        `json:"finishedAt"`
	Documents        int              `json:"documents"`
	FailedDocuments  []FailedDocument `json:"failedDocuments"`
	GroupsReconciled int              `json:"groupsReconciled"`
	GroupsFailed     []FailedGroup    `json:"groupsFailed"`
	GroupsChanged    []string         `json:"groupsChanged"`
	LessonsStored    int              `json:"lessonsStored"`
	LessonsSkipped   int              `json:"lessonsSkipped"`
}

// Duration of the cycle.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
