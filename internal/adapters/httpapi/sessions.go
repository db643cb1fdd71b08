package httpapi

import (
	"net/http"
	"time"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/labstack/echo/v4"
)

type joinBody struct {
	ParticipantID string        `json:"participantId"`
	Role          string        `json:"role"`
	Readiness     readinessView `json:"readiness"`
}

type readinessView struct {
	PermissionsGranted bool `json:"permissionsGranted"`
	MicTested          bool `json:"micTested"`
	SpeakerTested      bool `json:"speakerTested"`
	CameraPreviewed    bool `json:"cameraPreviewed"`
	ReadyConfirmed     bool `json:"readyConfirmed"`
}

func newReadinessView(record domain.ReadinessRecord) readinessView {
	return readinessView{
		PermissionsGranted: record.PermissionsGranted,
		MicTested:          record.MicTested,
		SpeakerTested:      record.SpeakerTested,
		CameraPreviewed:    record.CameraPreviewed,
		ReadyConfirmed:     record.ReadyConfirmed,
	}
}

func (v readinessView) record() domain.ReadinessRecord {
	return domain.ReadinessRecord{
		PermissionsGranted: v.PermissionsGranted,
		MicTested:          v.MicTested,
		SpeakerTested:      v.SpeakerTested,
		CameraPreviewed:    v.CameraPreviewed,
		ReadyConfirmed:     v.ReadyConfirmed,
	}
}

type participantView struct {
	ID         domain.ParticipantID   `json:"id"`
	Role       domain.Role            `json:"role"`
	Authority  domain.Authority       `json:"authority"`
	Connection domain.ConnectionState `json:"connection"`
	Readiness  readinessView          `json:"readiness"`
	JoinedAt   time.Time              `json:"joinedAt"`
}

type sessionView struct {
	ID           domain.SessionID  `json:"id"`
	ChannelUUID  string            `json:"channelUuid"`
	CurrentScene string            `json:"currentScene,omitempty"`
	Terminated   bool              `json:"terminated"`
	CreatedAt    time.Time         `json:"createdAt"`
	Participants []participantView `json:"participants"`
}

type sceneDirectoryView struct {
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Scenes    int       `json:"scenes"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionHandlers struct {
	rooms  Rooms
	scenes ports.SceneStore
}

func registerSessionAPI(app *echo.Echo, rooms Rooms, scenes ports.SceneStore) {
	h := sessionHandlers{rooms: rooms, scenes: scenes}

	group := app.Group("/sessions/:session")
	group.POST("/join", h.join)
	group.GET("", h.get)
	if scenes != nil {
		group.GET("/scenes", h.listScenes)
	}
}

func (h sessionHandlers) join(c echo.Context) error {
	var body joinBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed join request")
	}

	admission, err := h.rooms.Admit(c.Request().Context(), application.JoinRequest{
		SessionID:     c.Param("session"),
		ParticipantID: body.ParticipantID,
		Role:          body.Role,
		Readiness:     body.Readiness.record(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, admission.Response())
}

func (h sessionHandlers) get(c echo.Context) error {
	session, err := h.rooms.Session(domain.SessionID(c.Param("session")))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newSessionView(session))
}

func (h sessionHandlers) listScenes(c echo.Context) error {
	dirs, err := h.scenes.ListDirectories(c.Request().Context(), domain.SessionID(c.Param("session")))
	if err != nil {
		return err
	}

	views := make([]sceneDirectoryView, 0, len(dirs))
	for _, dir := range dirs {
		views = append(views, sceneDirectoryView{
			Name:      dir.Name,
			Document:  dir.Document,
			Scenes:    len(dir.Scenes),
			CreatedAt: dir.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, views)
}

func newSessionView(session domain.Session) sessionView {
	view := sessionView{
		ID:           session.ID,
		ChannelUUID:  session.ChannelUUID,
		Terminated:   session.Terminated,
		CreatedAt:    session.CreatedAt,
		Participants: make([]participantView, 0, len(session.Participants)),
	}
	if !session.CurrentScene.IsZero() {
		view.CurrentScene = session.CurrentScene.String()
	}

	for _, p := range session.Participants {
		view.Participants = append(view.Participants, participantView{
			ID:         p.ID,
			Role:       p.Role,
			Authority:  p.Authority,
			Connection: p.Connection,
			Readiness:  newReadinessView(p.Readiness),
			JoinedAt:   p.JoinedAt,
		})
	}
	return view
}
