package instance

import "github.com/angelmondragon/calorielens-backend/pkg/env"

// ID returns the process identifier attached to startup logs. Heroku-style
// DYNO names win over an explicit CALORIELENS_INSTANCE_ID.
func ID() string {
	if id, _ := env.First("DYNO", "CALORIELENS_INSTANCE_ID"); id != "" {
		return id
	}
	return "local"
}
