package model

// Member is one participant placed in a team.
type Member struct {
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Skills []string `json:"skills"`
}

// Team is a backend-computed grouping of participants.
type Team struct {
	TeamID             int64    `json:"team_id"`
	CompatibilityScore float64  `json:"compatibility_score"`
	Members            []Member `json:"members"`
}

// MatchResult is the response of POST /match_users. The backend answers with
// only a message when there are not enough participants to match.
type MatchResult struct {
	Teams      []Team `json:"teams"`
	TotalTeams int    `json:"total_teams,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Normalize replaces an absent team list with an empty one.
func (r MatchResult) Normalize() MatchResult {
	if r.Teams == nil {
		r.Teams = []Team{}
	}
	return r
}

// CloneTeams deep-copies a team list so callers cannot alias internal state.
func CloneTeams(teams []Team) []Team {
	if teams == nil {
		return nil
	}
	out := make([]Team, len(teams))
	for i, t := range teams {
		out[i] = t
		if t.Members != nil {
			out[i].Members = make([]Member, len(t.Members))
			for j, m := range t.Members {
				out[i].Members[j] = m
				if m.Skills != nil {
					out[i].Members[j].Skills = append([]string(nil), m.Skills...)
				}
			}
		}
	}
	return out
}
