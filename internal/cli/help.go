package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// ShowHelp prints usage information for the evently command.
func ShowHelp(w io.Writer) {
	fmt.Fprint(w, `Evently client
==============

Usage:
  evently <command> [flags]

Commands:
`)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range Commands() {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "help", "Show this help")
	_ = tw.Flush()
	fmt.Fprint(w, `
Configuration (environment, .env or the YAML file named by EVENTLY_CONFIG):
  EVENTLY_BASE_URL            backend endpoint (default http://127.0.0.1:8000)
  EVENTLY_REQUEST_TIMEOUT_MS  per-request timeout, 0 disables it (default 30000)
  EVENTLY_SESSION_BACKEND     file, memory or redis (default file)
  EVENTLY_SESSION_DIR         directory of the file session backend
  EVENTLY_REDIS_URL           address of the redis session backend
  EVENTLY_METRICS_ADDR        status server address used by watch
  EVENTLY_LOG_LEVEL           debug, info, warn or error

Examples:
  evently login -username ada -password secret
  evently match -event 3
  evently import -file demo.yaml -workers 8
  evently watch -serve 127.0.0.1:9090
`)
}
