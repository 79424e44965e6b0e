// Package model contains the normalized record types the aggregators work
// on. These types are independent of any vendor client library.
package model

import "time"

// PullRequest is a pull request authored by the principal.
type PullRequest struct {
	ID        int64
	Number    int
	Repo      string // owner/name
	Author    string
	State     string
	CreatedAt time.Time
	MergedAt  Optional[time.Time]
}

// Merged reports whether the pull request has a merge timestamp.
func (p PullRequest) Merged() bool {
	return p.MergedAt.IsSet()
}

// Review is one review event submitted by the principal.
type Review struct {
	ID           int64
	Repo         string
	PullNumber   int
	Author       string
	State        string
	SubmittedAt  time.Time
	CommentCount int
}

// StatusTransition is one status change from an issue changelog.
type StatusTransition struct {
	At   time.Time
	From string
	To   string
}

// Issue is an issue-tracker record with its status history. Changelog is
// kept in chronological order.
type Issue struct {
	Key       string
	Assignee  Optional[string]
	Status    Optional[string]
	Type      Optional[string]
	Priority  Optional[string]
	CreatedAt time.Time
	Changelog []StatusTransition
}

// ContentRevision is a page the principal created or last modified.
type ContentRevision struct {
	ID               string
	Title            string
	Creator          string
	CreatedAt        time.Time
	IsInitialVersion bool
	SpaceKey         string
	SpaceName        string
}

// Comment is a comment written by the principal.
type Comment struct {
	ID        string
	PageID    string
	Author    string
	CreatedAt time.Time
	SpaceKey  string
}
