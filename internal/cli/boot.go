package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nerrad567/ir-emitter/internal/boot"
	"github.com/nerrad567/ir-emitter/internal/lifecycle"
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#43BF6D"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB000"))
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func newBootCommand(opts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:       "boot {enable|disable|status}",
		Short:     "Enable the infrared emitter at boot",
		Long:      "Manage the udev rule and the init system service that re-apply drivers at boot and on hot-plug.",
		Args:      usageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
		ValidArgs: []string{lifecycle.BootEnable, lifecycle.BootDisable, lifecycle.BootStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			mutating := action != lifecycle.BootStatus
			return withSession(cmd, opts, deps, mutating, func(ctx context.Context, s *session) error {
				out := s.app.Service.Boot(ctx, action)
				if err := printBootOutcome(s.out, out); err != nil {
					return err
				}
				return outcomeError("boot "+action, out)
			})
		},
	}
}

type stepJSON struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type reportJSON struct {
	Action   string     `json:"action"`
	ExitCode int        `json:"exit_code"`
	Steps    []stepJSON `json:"steps"`
}

type statusJSON struct {
	Backend          string `json:"backend"`
	RulePresent      bool   `json:"rule_present"`
	RuleLines        int    `json:"rule_lines"`
	BackendInstalled bool   `json:"backend_installed"`
	BackendEnabled   bool   `json:"backend_enabled"`
	BackendError     string `json:"backend_error,omitempty"`
	State            string `json:"state"`
}

func printBootOutcome(f *OutputFormatter, out lifecycle.Outcome) error {
	switch {
	case out.Status != nil:
		return printStatus(f, *out.Status)
	case out.Report != nil:
		return printReport(f, *out.Report)
	}
	return nil
}

func printReport(f *OutputFormatter, r boot.Report) error {
	if f.JSON() {
		rj := reportJSON{Action: r.Action, ExitCode: r.ExitCode(), Steps: []stepJSON{}}
		for _, s := range r.Steps {
			sj := stepJSON{Name: s.Name, OK: !s.Failed()}
			if s.Err != nil {
				sj.Error = s.Err.Error()
			}
			rj.Steps = append(rj.Steps, sj)
		}
		return f.Encode(rj)
	}

	for _, s := range r.Steps {
		if s.Failed() {
			f.Printf("%-16s %s %s\n", s.Name, errStyle.Render("failed"), dimStyle.Render(s.Err.Error()))
		} else {
			f.Printf("%-16s %s\n", s.Name, okStyle.Render("ok"))
		}
	}
	return nil
}

func printStatus(f *OutputFormatter, st boot.StatusReport) error {
	if f.JSON() {
		sj := statusJSON{
			Backend:          string(st.Backend),
			RulePresent:      st.RulePresent,
			RuleLines:        st.RuleLines,
			BackendInstalled: st.BackendInstalled,
			BackendEnabled:   st.BackendEnabled,
			State:            string(st.State),
		}
		if st.BackendErr != nil {
			sj.BackendError = st.BackendErr.Error()
		}
		return f.Encode(sj)
	}

	rule := "absent"
	if st.RulePresent {
		rule = fmt.Sprintf("present (%d rules)", st.RuleLines)
	}
	service := "not installed"
	switch {
	case st.BackendEnabled:
		service = "enabled"
	case st.BackendInstalled:
		service = "disabled"
	}
	if st.BackendErr != nil {
		service += " " + dimStyle.Render("("+st.BackendErr.Error()+")")
	}

	f.Printf("backend:   %s\n", st.Backend)
	f.Printf("rule file: %s\n", rule)
	f.Printf("service:   %s\n", service)
	f.Printf("state:     %s\n", stateStyle(st.State).Render(string(st.State)))
	return nil
}

func stateStyle(s boot.State) lipgloss.Style {
	switch s {
	case boot.StateEnabled:
		return okStyle
	case boot.StateDisabled:
		return warnStyle
	default:
		return errStyle
	}
}
