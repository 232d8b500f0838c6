package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dbfuel/internal/pipeline"
)

// LoadResult contains a decoded pipeline file.
type LoadResult struct {
	Path   string
	Format string // "yaml" | "cue"
	Config pipeline.Config
}

// LoadError represents an error that occurred while loading a pipeline file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPipeline reads a pipeline declaration from path. The format follows
// the extension: .yaml/.yml or .cue.
func LoadPipeline(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("pipeline file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing pipeline file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading pipeline file: %v", err)}
	}

	result := &LoadResult{Path: path}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		result.Format = "yaml"
		if err := yaml.Unmarshal(data, &result.Config); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing YAML: %v", err)}
		}
	case ".cue":
		result.Format = "cue"
		cfg, err := decodeCUE(path, data)
		if err != nil {
			return nil, err
		}
		result.Config = cfg
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported pipeline extension %q (want .yaml, .yml or .cue)", ext)}
	}

	if len(result.Config.Jobs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoJobs, Message: fmt.Sprintf("no jobs declared in %s", path)}
	}
	return result, nil
}

// decodeCUE evaluates a CUE pipeline and decodes its concrete value.
//
// The value is exported as JSON and decoded with the YAML decoder so job
// options carry the same Go types whichever format they were written in.
func decodeCUE(path string, data []byte) (pipeline.Config, error) {
	var cfg pipeline.Config

	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return cfg, cueLoadError(ErrCodeLoadFailed, "compiling CUE", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return cfg, cueLoadError(ErrCodeBuildFailed, "evaluating CUE", err)
	}

	exported, err := value.MarshalJSON()
	if err != nil {
		return cfg, cueLoadError(ErrCodeBuildFailed, "exporting CUE", err)
	}
	if err := yaml.Unmarshal(exported, &cfg); err != nil {
		return cfg, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("decoding CUE: %v", err)}
	}
	return cfg, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(code, stage string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", stage, err)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		loadErr.Pos = errs[0].Position()
		loadErr.Message = fmt.Sprintf("%s: %s", stage, errs[0].Error())
	}
	return loadErr
}

// loadErrorCode returns the code of err when it is a *LoadError.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeNoJobs      = "E003" // Pipeline declares no jobs
	ErrCodeLoadFailed  = "E004" // YAML/CUE parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeUnsupported = "E007" // Unsupported file extension
	ErrCodeSchedule    = "E008" // Invalid schedule flags

	// Pipeline construction errors
	ErrCodeJobConfig   = "E101" // Invalid job options
	ErrCodeUnknownType = "E102" // Unknown job type
	ErrCodeSteps       = "E103" // Invalid steps list
	ErrCodeDuplicate   = "E104" // Duplicate job name

	// Execution errors
	ErrCodeDatabase  = "E201" // Database unreachable
	ErrCodeJobFailed = "E202" // Job failed during execution

	// Scenario errors
	ErrCodeTestFailed = "E301" // One or more scenarios failed
)

// MapConfigErrorToCode maps a pipeline configuration error to an error code.
func MapConfigErrorToCode(err *pipeline.ConfigError) string {
	switch {
	case err.Field == "type":
		return ErrCodeUnknownType
	case err.Field == "steps":
		return ErrCodeSteps
	case err.Field == "name" && strings.Contains(err.Message, "more than once"):
		return ErrCodeDuplicate
	default:
		return ErrCodeJobConfig
	}
}
