package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/classroom/internal/adapters/devices/static"
	statusadapter "github.com/bnema/classroom/internal/adapters/render/status"
	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/spf13/cobra"
)

const (
	teacherID  domain.ParticipantID = "teacher"
	intruderID domain.ParticipantID = "teacher-2"
)

var simulatedCamera = domain.Camera{X: 100, Y: 50, Scale: 0.8}

type simulateOptions struct {
	sessionID string
	students  int
	document  string
	failing   []string
	force     bool
	end       bool
	asJSON    bool
}

type participantReport struct {
	ID          domain.ParticipantID `json:"id"`
	Authority   domain.Authority     `json:"authority"`
	State       domain.GateState     `json:"state"`
	Synced      bool                 `json:"synced"`
	Forced      bool                 `json:"forced,omitempty"`
	View        domain.ViewState     `json:"view"`
	LeaveReason string               `json:"leaveReason,omitempty"`
	JoinError   string               `json:"joinError,omitempty"`
}

type ingestionReport struct {
	Directory string `json:"sceneDirectory"`
	Scenes    int    `json:"scenes"`
	Failed    []int  `json:"failedPages,omitempty"`
}

type evictionReport struct {
	Clean     bool                   `json:"clean"`
	Remaining []domain.ParticipantID `json:"remaining,omitempty"`
}

type simulationReport struct {
	Session      domain.SessionID    `json:"session"`
	Channel      string              `json:"channel"`
	Participants []participantReport `json:"participants"`
	RoleConflict string              `json:"roleConflict,omitempty"`
	Camera       *domain.Camera      `json:"camera,omitempty"`
	Ingestion    *ingestionReport    `json:"ingestion,omitempty"`
	Eviction     *evictionReport     `json:"eviction,omitempty"`

	statuses []application.ParticipantStatus
}

func newSimulateCmd(app *app) *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a classroom in-process and show every participant's state",
		Long:  "Run a teacher and students in this process over an in-memory channel: join, synchronize the camera, reject a second teacher, optionally ingest a document and end the session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.students < 0 {
				return errors.New("--students must not be negative")
			}
			failing, err := static.ParseChecks(opts.failing)
			if err != nil {
				return err
			}

			report, err := runSimulation(cmd.Context(), app, opts, failing)
			if err != nil {
				return err
			}
			return writeSimulationOutput(cmd, app, report, opts.asJSON)
		},
	}

	cmd.Flags().StringVar(&opts.sessionID, "session", "demo", "Session ID")
	cmd.Flags().IntVar(&opts.students, "students", 2, "Number of students")
	cmd.Flags().StringVar(&opts.document, "document", "", "Document to ingest (path, file:// or http(s) URL)")
	cmd.Flags().StringSliceVar(&opts.failing, "fail", nil, "Device checks that fail for students (permissions, microphone, speaker, camera)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Let students join without passing device checks")
	cmd.Flags().BoolVar(&opts.end, "end", false, "End the session and verify every student left")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")

	return cmd
}

func runSimulation(ctx context.Context, app *app, opts simulateOptions, failing []domain.DeviceCheck) (simulationReport, error) {
	sessionID := domain.SessionID(opts.sessionID)
	room := newLocalRoom(app)
	defer room.Close()

	report := simulationReport{Session: sessionID}

	teacher, err := room.client(sessionID, teacherID, domain.RoleTeacher)
	if err != nil {
		return report, err
	}
	if err := teacher.Join(ctx, false); err != nil {
		return report, fmt.Errorf("teacher join: %w", err)
	}
	report.Channel = teacher.Gate().Handle().Channel.UUID

	students := make([]*application.Client, 0, opts.students)
	joinErrs := make(map[domain.ParticipantID]error)
	var present []*application.Client
	for i := 1; i <= opts.students; i++ {
		student, err := room.client(sessionID, domain.ParticipantID(fmt.Sprintf("student-%d", i)), domain.RoleStudent, failing...)
		if err != nil {
			return report, err
		}
		students = append(students, student)

		if err := student.Join(ctx, opts.force); err != nil {
			joinErrs[student.ParticipantID()] = err
			continue
		}
		present = append(present, student)
	}

	for _, client := range append([]*application.Client{teacher}, present...) {
		err := waitFor(ctx, app.policy.SyncDeadline, fmt.Sprintf("%s never became active", client.ParticipantID()), func() bool {
			return client.Gate().State() == domain.GateActive
		})
		if err != nil {
			return report, err
		}
	}

	intruder, err := room.client(sessionID, intruderID, domain.RoleTeacher)
	if err != nil {
		return report, err
	}
	err = intruder.Join(ctx, true)
	switch {
	case errors.Is(err, domain.ErrRoleConflict):
		report.RoleConflict = err.Error()
	case err == nil:
		return report, fmt.Errorf("second teacher %s was admitted", intruderID)
	default:
		return report, fmt.Errorf("second teacher join: %w", err)
	}

	if opts.document != "" {
		pipeline := application.NewIngestionPipeline(app.documents, app.scenes, app.clock, app.policy, app.logger)
		result, err := pipeline.Ingest(ctx, teacher.Engine(), opts.document, nil)
		if err != nil {
			return report, err
		}
		report.Ingestion = newIngestionReport(result)
	}

	camera, err := teacher.Engine().MoveCamera(ctx, simulatedCamera)
	if err != nil {
		return report, fmt.Errorf("move camera: %w", err)
	}
	for _, student := range present {
		surface, ok := room.surface(student.ParticipantID())
		if !ok {
			return report, fmt.Errorf("no surface for %s", student.ParticipantID())
		}
		err := waitFor(ctx, app.policy.SyncDeadline, fmt.Sprintf("camera never reached %s", student.ParticipantID()), func() bool {
			return surface.Snapshot().Camera == camera
		})
		if err != nil {
			return report, err
		}
	}
	report.Camera = &camera

	if opts.end {
		eviction, err := teacher.EndSession(ctx)
		if err != nil {
			return report, fmt.Errorf("end session: %w", err)
		}
		report.Eviction = &evictionReport{Clean: eviction.Clean(), Remaining: eviction.Remaining}
	}

	for _, client := range append([]*application.Client{teacher}, students...) {
		status := client.Status()
		report.statuses = append(report.statuses, status)
		participant := participantReport{
			ID:          status.Gate.Participant,
			Authority:   status.Gate.Authority,
			State:       status.Gate.State,
			Synced:      status.Synced,
			Forced:      status.Gate.Forced,
			View:        status.View,
			LeaveReason: status.Gate.LeaveReason,
		}
		if err := joinErrs[participant.ID]; err != nil {
			participant.JoinError = err.Error()
		}
		report.Participants = append(report.Participants, participant)
	}

	return report, nil
}

func newIngestionReport(result application.IngestionResult) *ingestionReport {
	report := &ingestionReport{
		Directory: result.Directory.Name,
		Scenes:    len(result.Directory.Scenes),
	}
	for _, failure := range result.Failures {
		report.Failed = append(report.Failed, failure.Page)
	}
	return report
}

func writeSimulationOutput(cmd *cobra.Command, app *app, report simulationReport, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	rendered, err := app.statusRenderer(report.statuses, statusadapter.RenderOptions{
		SessionID: report.Session,
		Channel:   report.Channel,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}
	if _, err := fmt.Fprintln(out, rendered); err != nil {
		return err
	}

	var lines []string
	for _, participant := range report.Participants {
		if participant.JoinError != "" {
			lines = append(lines, fmt.Sprintf("%s did not join: %s", participant.ID, participant.JoinError))
		}
	}
	if report.RoleConflict != "" {
		lines = append(lines, fmt.Sprintf("second teacher rejected: %s", report.RoleConflict))
	}
	if report.Ingestion != nil {
		lines = append(lines, fmt.Sprintf("ingested %d scenes into %s (%d pages failed)", report.Ingestion.Scenes, report.Ingestion.Directory, len(report.Ingestion.Failed)))
	}
	if report.Camera != nil {
		lines = append(lines, fmt.Sprintf("camera x=%g y=%g scale=%g reached every joined student", report.Camera.X, report.Camera.Y, report.Camera.Scale))
	}
	if report.Eviction != nil {
		if report.Eviction.Clean {
			lines = append(lines, "session ended: every student left")
		} else {
			lines = append(lines, fmt.Sprintf("session ended: still present %v", report.Eviction.Remaining))
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
