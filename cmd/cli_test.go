package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "classroom "+version.Version+" ("+version.Commit+")\n", stdout)

	stdout, _, err = executeCLI(t, t.TempDir(), "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestSimulateRendersEveryParticipant(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "simulate", "--session", "math-101", "--students", "2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Classroom math-101")
	assert.Contains(t, stdout, "participants: 3")
	assert.Contains(t, stdout, "teacher (broadcaster)")
	assert.Contains(t, stdout, "student-1 (follower)")
	assert.Contains(t, stdout, "student-2 (follower)")
	assert.Contains(t, stdout, "second teacher rejected")
	assert.Contains(t, stdout, "reached every joined student")
}

func TestSimulateJSONEndsSession(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "simulate", "--students", "3", "--end", "--json")
	require.NoError(t, err)

	var report simulationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))

	assert.Equal(t, domain.SessionID("demo"), report.Session)
	assert.NotEmpty(t, report.Channel)
	assert.NotEmpty(t, report.RoleConflict)
	require.NotNil(t, report.Camera)
	assert.Equal(t, simulatedCamera, *report.Camera)
	require.NotNil(t, report.Eviction)
	assert.True(t, report.Eviction.Clean)
	assert.Empty(t, report.Eviction.Remaining)

	require.Len(t, report.Participants, 4)
	assert.Equal(t, domain.AuthorityBroadcaster, report.Participants[0].Authority)
	for _, participant := range report.Participants {
		assert.Equal(t, domain.GateLeft, participant.State, participant.ID)
		assert.Equal(t, "session_ended", participant.LeaveReason, participant.ID)
	}
}

func TestSimulateFailingPermissionsBlocksStudents(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "simulate", "--students", "1", "--fail", "permissions", "--json")
	require.NoError(t, err)

	var report simulationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Participants, 2)

	student := report.Participants[1]
	assert.NotEmpty(t, student.JoinError)
	assert.Equal(t, domain.GateAwaitingReadiness, student.State)
	assert.Equal(t, domain.GateActive, report.Participants[0].State)
}

func TestSimulateForcedJoinSkipsFailingChecks(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "simulate", "--students", "1", "--fail", "permissions,camera", "--force", "--json")
	require.NoError(t, err)

	var report simulationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Participants, 2)

	student := report.Participants[1]
	assert.Empty(t, student.JoinError)
	assert.True(t, student.Forced)
	assert.Equal(t, domain.GateActive, student.State)
	assert.Equal(t, simulatedCamera, student.View.Camera)
	assert.True(t, student.View.InputBlocked)
}

func TestSimulateRejectsUnknownCheck(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "simulate", "--fail", "telepathy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown device check")
}

func TestIngestJSONStreamsProgressThenDirectory(t *testing.T) {
	home := t.TempDir()
	deck := writeDeck(t, 3)

	stdout, _, err := executeCLI(t, home, "ingest", "--session", "math-101", "--document", deck, "--json")
	require.NoError(t, err)

	lines := jsonLines(t, stdout)
	require.Len(t, lines, 4)
	for i, line := range lines[:3] {
		assert.EqualValues(t, i+1, line["processed"])
		assert.EqualValues(t, 3, line["total"])
	}
	assert.EqualValues(t, 3, lines[3]["scenes"])
	name, ok := lines[3]["sceneDirectory"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(name, "math-101-"), name)

	stdout, _, err = executeCLI(t, home, "scenes", "list", "--session", "math-101", "--json")
	require.NoError(t, err)

	var dirs []sceneDirectoryOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &dirs))
	require.Len(t, dirs, 1)
	assert.Equal(t, name, dirs[0].Name)
	assert.Equal(t, 3, dirs[0].Scenes)
	assert.Equal(t, deck, dirs[0].Document)
}

func TestIngestJSONReportsErrorLine(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "ingest", "--session", "math-101", "--document", filepath.Join(t.TempDir(), "missing"), "--json")
	require.Error(t, err)

	lines := jsonLines(t, stdout)
	require.Len(t, lines, 1)
	assert.NotEmpty(t, lines[0]["error"])
}

func TestIngestPrintsSummary(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "ingest", "--session", "math-101", "--document", writeDeck(t, 2))
	require.NoError(t, err)

	assert.Contains(t, stdout, "with 2 scenes (0 pages failed)")
}

func TestIngestRequiresFlags(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "ingest", "--document", "deck.zip")
	require.EqualError(t, err, "--session is required")

	_, _, err = executeCLI(t, t.TempDir(), "ingest", "--session", "math-101")
	require.EqualError(t, err, "--document is required")
}

func TestScenesListEmpty(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "scenes", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scene directories.")
}

func TestScenesPathFromConfigFile(t *testing.T) {
	home := t.TempDir()
	scenesRoot := filepath.Join(t.TempDir(), "custom-scenes")
	configDir := filepath.Join(home, ".classroom")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(fmt.Sprintf("[scenes]\npath = %q\n", scenesRoot)), 0o644))

	_, _, err := executeCLI(t, home, "ingest", "--session", "math-101", "--document", writeDeck(t, 1), "--json")
	require.NoError(t, err)

	entries, err := os.ReadDir(scenesRoot)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInvalidConfigurationFailsEveryCommand(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want string
	}{
		{name: "zero sync deadline", env: "CLASSROOM_SYNC_DEADLINE", val: "0s", want: "invalid configuration"},
		{name: "unknown log format", env: "CLASSROOM_LOG_FORMAT", val: "xml", want: "log.format"},
		{name: "unknown log level", env: "CLASSROOM_LOG_LEVEL", val: "loud", want: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.env, tc.val)

			_, _, err := executeCLI(t, t.TempDir(), "version")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	if os.Getenv("CLASSROOM_LOG_LEVEL") == "" {
		t.Setenv("CLASSROOM_LOG_LEVEL", "error")
	}

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeDeck writes a directory of numbered PNG pages.
func writeDeck(t *testing.T, pages int) string {
	t.Helper()

	dir := t.TempDir()
	for i := 1; i <= pages; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 64, 48))
		for x := 0; x < 64; x++ {
			img.Set(x, i, color.RGBA{R: uint8(40 * i), A: 255})
		}

		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page-%d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()

	var lines []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}
