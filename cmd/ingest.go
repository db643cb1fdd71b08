package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/spf13/cobra"
)

type ingestResultLine struct {
	SceneDirectory string `json:"sceneDirectory"`
	Scenes         int    `json:"scenes"`
	FailedPages    []int  `json:"failedPages,omitempty"`
}

type ingestErrorLine struct {
	Error string `json:"error"`
}

func newIngestCmd(app *app) *cobra.Command {
	var (
		sessionID string
		document  string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Convert a document into a scene directory for a session",
		Long:  "Open a paginated document (an image directory, a zip of images, or a single image, local or over HTTP), render each page into a scene, and store the scene directory for the session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				return errors.New("--session is required")
			}
			if document == "" {
				return errors.New("--document is required")
			}

			if asJSON {
				return runIngestJSON(cmd, app, domain.SessionID(sessionID), document)
			}

			var result application.IngestionResult
			err := runIngestSpinner(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, progress func(application.IngestionProgress)) error {
				var err error
				result, err = ingestDocument(ctx, app, domain.SessionID(sessionID), document, progress)
				return err
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created scene directory %s with %d scenes (%d pages failed)\n",
				result.Directory.Name, len(result.Directory.Scenes), len(result.Failures))
			return err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID the scenes belong to")
	cmd.Flags().StringVar(&document, "document", "", "Document path, file:// or http(s) URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Stream progress as JSON lines")

	return cmd
}

// runIngestJSON writes one {processed,total} line per page, then a final
// {sceneDirectory} or {error} line.
func runIngestJSON(cmd *cobra.Command, app *app, sessionID domain.SessionID, document string) error {
	enc := json.NewEncoder(cmd.OutOrStdout())

	var writeErr error
	result, err := ingestDocument(cmd.Context(), app, sessionID, document, func(progress application.IngestionProgress) {
		if writeErr == nil {
			writeErr = enc.Encode(progress)
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		if encErr := enc.Encode(ingestErrorLine{Error: err.Error()}); encErr != nil {
			return errors.Join(err, encErr)
		}
		return err
	}

	line := ingestResultLine{
		SceneDirectory: result.Directory.Name,
		Scenes:         len(result.Directory.Scenes),
	}
	for _, failure := range result.Failures {
		line.FailedPages = append(line.FailedPages, failure.Page)
	}
	return enc.Encode(line)
}

// ingestDocument enters the session as its teacher in a local room and runs
// the pipeline through the teacher's view sync engine.
func ingestDocument(ctx context.Context, app *app, sessionID domain.SessionID, document string, progress func(application.IngestionProgress)) (application.IngestionResult, error) {
	room := newLocalRoom(app)
	defer room.Close()

	teacher, err := room.client(sessionID, teacherID, domain.RoleTeacher)
	if err != nil {
		return application.IngestionResult{}, err
	}
	if err := teacher.Join(ctx, true); err != nil {
		return application.IngestionResult{}, fmt.Errorf("enter session %s: %w", sessionID, err)
	}

	pipeline := application.NewIngestionPipeline(app.documents, app.scenes, app.clock, app.policy, app.logger)
	return pipeline.Ingest(ctx, teacher.Engine(), document, progress)
}
