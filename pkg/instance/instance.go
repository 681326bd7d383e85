package instance

import "github.com/angelmondragon/user-management/pkg/env"

// ID identifies this process in logs: DYNO on Heroku-style hosts, then
// HOSTNAME, then "local".
func ID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("HOSTNAME", "local")
}
