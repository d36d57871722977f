package application

import "expvar"

// Published under /api/debug/vars.
var (
	loginsTotal      = expvar.NewInt("logins")
	countUpdateTotal = expvar.NewInt("bar_count_updates")
)
