// Package buildinfo carries version stamps set with -ldflags -X.
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}

// String renders the version with the short commit, if known.
func String() string {
	if len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	if Commit != "" {
		return Version + " (" + Commit + ")"
	}
	return Version
}
