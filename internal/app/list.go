package app

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"procterm/internal/instance"
	"procterm/internal/process"
)

func (a *App) listEntries() error {
	entries, err := a.registryStore().List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no processes")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPID\tPGID\tSTATE\tSTARTED\tCOMMAND")
	for _, e := range entries {
		state := e.Status
		if !instance.Finished(state) && !process.IsAlive(e.PID) {
			state = instance.StateGone
		}
		pgid := "-"
		if e.PGID > 0 {
			pgid = fmt.Sprint(e.PGID)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			e.Name, e.PID, pgid, state, e.StartedAt.Local().Format(time.DateTime), strings.Join(e.Command, " "))
	}
	return w.Flush()
}
