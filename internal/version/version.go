package version

// Set at build time with -ldflags "-X github.com/bnema/classroom/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)

func String() string {
	return "classroom " + Version + " (" + Commit + ")"
}
