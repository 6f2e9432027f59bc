// Package model contains the records exchanged with the evently backend and
// passed between client layers.
package model

import "strings"

// Event is an organized activity (hackathon, workshop) as listed by GET /events.
// It is never mutated by the client.
type Event struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Date           string `json:"date"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	RequiredSkills string `json:"required_skills"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Skills splits the comma-separated required_skills tag list.
func (e Event) Skills() []string {
	return splitSkills(e.RequiredSkills)
}

// EventInput is the body of POST /create_event.
type EventInput struct {
	Name           string `json:"name" validate:"required"`
	Date           string `json:"date" validate:"required"`
	Location       string `json:"location" validate:"required"`
	Description    string `json:"description" validate:"required"`
	RequiredSkills string `json:"required_skills" validate:"required"`
}

// CreatedEvent is the response of POST /create_event.
type CreatedEvent struct {
	EventID int64  `json:"event_id"`
	Message string `json:"message,omitempty"`
}

// SeedResult is the response of POST /seed_demo.
type SeedResult struct {
	Message string `json:"message"`
	Events  int    `json:"events"`
	Users   int    `json:"users"`
}

func splitSkills(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
