package engine

import (
	"context"
	"os"
)

// DefaultSessionVars are the environment variables checked, in order, for an
// ambient host session token.
var DefaultSessionVars = []string{"GITSWITCH_TOKEN", "GH_TOKEN", "GITHUB_TOKEN"}

// EnvSession is a SessionSource backed by environment variables, the CLI
// equivalent of an externally-supplied editor session.
type EnvSession struct {
	// Vars overrides the variables to check; empty means DefaultSessionVars.
	Vars []string
}

// Token returns the first non-empty configured variable.
func (s EnvSession) Token(context.Context) (string, bool) {
	vars := s.Vars
	if len(vars) == 0 {
		vars = DefaultSessionVars
	}
	for _, v := range vars {
		if value := os.Getenv(v); value != "" {
			return value, true
		}
	}
	return "", false
}
