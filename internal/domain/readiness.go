package domain

type DeviceCheck string

const (
	CheckPermissions DeviceCheck = "permissions"
	CheckMicrophone  DeviceCheck = "microphone"
	CheckSpeaker     DeviceCheck = "speaker"
	CheckCamera      DeviceCheck = "camera"
)

type ReadinessRecord struct {
	PermissionsGranted bool
	MicTested          bool
	SpeakerTested      bool
	CameraPreviewed    bool
	ReadyConfirmed     bool
}

// Mark records the outcome of a single device check. A failed permission
// request revokes the grant and any confirmation built on it; failed device
// tests only leave their flag unset.
func (r ReadinessRecord) Mark(check DeviceCheck, ok bool) ReadinessRecord {
	switch check {
	case CheckPermissions:
		r.PermissionsGranted = ok
		r.ReadyConfirmed = r.ReadyConfirmed && ok
	case CheckMicrophone:
		r.MicTested = r.MicTested || ok
	case CheckSpeaker:
		r.SpeakerTested = r.SpeakerTested || ok
	case CheckCamera:
		r.CameraPreviewed = r.CameraPreviewed || ok
	}
	return r
}

// Confirm sets ReadyConfirmed. It requires PermissionsGranted and is a no-op
// on a record that is already confirmed.
func (r ReadinessRecord) Confirm() (ReadinessRecord, error) {
	if r.ReadyConfirmed {
		return r, nil
	}
	if !r.PermissionsGranted {
		return r, ErrPermissionsRequired
	}
	r.ReadyConfirmed = true
	return r, nil
}

// CanEnter reports whether the live room may be entered, either because the
// participant confirmed readiness or because the join is forced.
func (r ReadinessRecord) CanEnter(forced bool) bool {
	return forced || r.ReadyConfirmed
}
