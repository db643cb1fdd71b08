package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/classroom/internal/domain"
	"github.com/spf13/cobra"
)

type sceneDirectoryOutput struct {
	Name      string    `json:"name"`
	Session   string    `json:"session"`
	Document  string    `json:"document"`
	Scenes    int       `json:"scenes"`
	CreatedAt time.Time `json:"createdAt"`
}

func newScenesCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "Inspect stored scene directories",
	}

	cmd.AddCommand(newScenesListCmd(app))
	return cmd
}

func newScenesListCmd(app *app) *cobra.Command {
	var (
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scene directories, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dirs, err := app.scenes.ListDirectories(cmd.Context(), domain.SessionID(sessionID))
			if err != nil {
				return err
			}

			outputs := make([]sceneDirectoryOutput, 0, len(dirs))
			for _, dir := range dirs {
				outputs = append(outputs, sceneDirectoryOutput{
					Name:      dir.Name,
					Session:   string(dir.SessionID),
					Document:  dir.Document,
					Scenes:    len(dir.Scenes),
					CreatedAt: dir.CreatedAt,
				})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outputs)
			}

			if len(outputs) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No scene directories.")
				return err
			}

			for _, out := range outputs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d scenes\t%s\t%s\n", out.Name, out.Session, out.Scenes, out.CreatedAt.Format(time.RFC3339), out.Document)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only list directories of this session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
