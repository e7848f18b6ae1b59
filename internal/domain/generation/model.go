package generation

// File-split policies
const (
	SplitSingle         = "single"
	SplitByResourceName = "by_resource_name"
	SplitByResourceType = "by_resource_type"
)

// Naming conventions
const (
	NamingSnakeCase = "snake_case"
	NamingKebabCase = "kebab-case"
	NamingOriginal  = "original"
)

// Import script formats
const (
	ScriptBash       = "bash"
	ScriptPowerShell = "powershell"
	ScriptNone       = "none"
)

// Config controls the layout of one generation. Unrecognized split, naming and script values
// fall back to their defaults instead of failing.
type Config struct {
	OutputDir          string `json:"output_dir" yaml:"output_dir" validate:"required"`
	FileSplit          string `json:"file_split" yaml:"file_split"`
	NamingConvention   string `json:"naming_convention" yaml:"naming_convention"`
	ImportScriptFormat string `json:"import_script_format" yaml:"import_script_format"`
	IncludeReadme      bool   `json:"include_readme" yaml:"include_readme"`
	PreviewChars       int    `json:"preview_chars" yaml:"preview_chars" validate:"gte=0"`
}

// Result describes what a generation wrote to disk
type Result struct {
	GenerationID     string            `json:"generation_id"`
	OutputPath       string            `json:"output_path"`
	Files            []string          `json:"files"`
	ImportScriptPath string            `json:"import_script_path,omitempty"`
	Preview          map[string]string `json:"preview,omitempty"`
}
