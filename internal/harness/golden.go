package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// noValue marks an output that has not emitted yet.
const noValue = "-"

// Render formats a scenario's snapshots as the golden text: a header, then
// one block per step listing every output and the live collaborator calls.
//
// Only settled states are rendered, not the raw emission order, so a golden
// file changes when behaviour changes and not when the signal graph is
// rearranged.
func Render(scenario *Scenario, result *Result) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "scenario: %s\n", scenario.Name)
	fmt.Fprintf(&buf, "session: %s\n", scenario.SessionID())

	for _, snap := range result.Snapshots {
		buf.WriteByte('\n')
		if snap.Step == 0 {
			fmt.Fprintf(&buf, "--- %s\n", snap.Label)
		} else {
			fmt.Fprintf(&buf, "--- step %d: %s\n", snap.Step, snap.Label)
		}
		for _, name := range outputNames {
			v, ok := snap.Values[name]
			if !ok {
				v = noValue
			}
			fmt.Fprintf(&buf, "  %-27s %s\n", name, v)
		}
		fmt.Fprintf(&buf, "  pending: %s=%d %s=%d %s=%d\n",
			TargetUsername, snap.Pending[TargetUsername],
			TargetSignup, snap.Pending[TargetSignup],
			TargetPrompt, snap.Pending[TargetPrompt])
	}

	buf.WriteByte('\n')
	if len(result.Prompts) == 0 {
		buf.WriteString("prompts: none\n")
	} else {
		buf.WriteString("prompts:\n")
		for _, msg := range result.Prompts {
			fmt.Fprintf(&buf, "  %q\n", msg)
		}
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the rendered snapshots
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the rendering doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	AssertGolden(t, scenario.Name, Render(scenario, result))
	return nil
}

// AssertGolden compares data against testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
