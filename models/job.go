package models

type Job struct {
	Name          string
	Paths         []string
	Ignore        []string
	Events        []string
	Cmd           string
	Env           map[string]string
	Dotenv        bool
	WorkingDir    string
	SkipUnchanged bool
	TrackedOnly   bool
	Policy        Policy
}
