package script

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"

	"github.com/fornellas/xyzctl/stepper"
)

type recordingSender struct {
	bodies []string
}

func (s *recordingSender) Send(ctx context.Context, body string) error {
	s.bodies = append(s.bodies, body)
	return nil
}

func writeScript(t *testing.T, src string) string {
	path := filepath.Join(t.TempDir(), "script.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRun(t *testing.T) {
	ctx := log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))

	testCases := []struct {
		name           string
		src            string
		expectedBodies []string
		expectedStdout string
		errorContains  string
	}{
		{
			name: "move and home",
			src: `package main

import (
	"fmt"

	"xyzctl"
)

func main() {
	if err := xyzctl.Move("x", "100"); err != nil {
		panic(err)
	}
	xyzctl.Sleep(1)
	if err := xyzctl.MoveAll("1", "2", "3"); err != nil {
		panic(err)
	}
	if err := xyzctl.Home(); err != nil {
		panic(err)
	}
	fmt.Println("done")
}
`,
			expectedBodies: []string{"X100", "X1,Y2,Z3", "HOME"},
			expectedStdout: "done\n",
		},
		{
			name: "reversed",
			src: `package main

import "xyzctl"

func main() {
	xyzctl.SetReversed(true)
	if err := xyzctl.Move("Z", "7"); err != nil {
		panic(err)
	}
	if err := xyzctl.Home(); err != nil {
		panic(err)
	}
}
`,
			expectedBodies: []string{"Z-7", "HOME_REVERSED"},
		},
		{
			name: "validation error is returned to the script",
			src: `package main

import (
	"fmt"

	"xyzctl"
)

func main() {
	if err := xyzctl.SetMax("Y", "50"); err != nil {
		panic(err)
	}
	if err := xyzctl.Move("Y", "51"); err != nil {
		fmt.Println("rejected")
	}
	if err := xyzctl.Move("W", "1"); err != nil {
		fmt.Println("unknown axis")
	}
}
`,
			expectedStdout: "rejected\nunknown axis\n",
		},
		{
			name:          "syntax error",
			src:           "package main\n\nfunc main() {\n",
			errorContains: "expected",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &recordingSender{}
			panel := stepper.NewPanel(sender, nil)
			var stdout bytes.Buffer

			err := Run(ctx, writeScript(t, tc.src), panel, &stdout)
			if tc.errorContains != "" {
				require.ErrorContains(t, err, tc.errorContains)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedBodies, sender.bodies)
			require.Equal(t, tc.expectedStdout, stdout.String())
		})
	}
}
