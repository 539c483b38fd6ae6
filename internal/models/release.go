package models

// ArchiverKind selects how zip archives are produced.
type ArchiverKind string

const (
	ArchiverExec   ArchiverKind = "exec"
	ArchiverNative ArchiverKind = "native"
)

// ReleaseConfig represents the parsed release.yaml configuration.
type ReleaseConfig struct {
	Bundle      string       `yaml:"bundle" json:"bundle"`
	WorkDir     string       `yaml:"work_dir" json:"work_dir"`
	DistDir     string       `yaml:"dist_dir" json:"dist_dir"`
	StageDir    string       `yaml:"stage_dir,omitempty" json:"stage_dir,omitempty"`
	LogLevel    string       `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Archiver    ArchiverKind `yaml:"archiver" json:"archiver"`
	ZipBinary   string       `yaml:"zip_binary" json:"zip_binary"`
	GitBinary   string       `yaml:"git_binary" json:"git_binary"`
	MaxParallel int          `yaml:"max_parallel" json:"max_parallel"`
	Assets      AssetsConfig `yaml:"assets" json:"assets"`
}

// AssetsConfig describes the design-assets repository and how to sort it.
type AssetsConfig struct {
	RepoURL  string `yaml:"repo_url" json:"repo_url"`
	Ref      string `yaml:"ref,omitempty" json:"ref,omitempty"` // empty = default branch
	Depth    int    `yaml:"depth,omitempty" json:"depth,omitempty"`
	CloneDir string `yaml:"clone_dir" json:"clone_dir"`
	Rules    string `yaml:"rules,omitempty" json:"rules,omitempty"` // empty = embedded defaults
}
