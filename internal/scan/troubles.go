package scan

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type (
	TroubleType int

	// Trouble wraps an error which caused a scan to fail with a
	// classification of the failure, which in turn dictates the
	// resolutions which can be applied to it.
	Trouble struct {
		error
		tType TroubleType
	}

	ResolutionType int

	RetryResolution struct{}
	AbortResolution struct{}

	// RemapPathResolution instructs the service to point the troubled
	// item at a new source path before retrying it. Useful when the
	// file was moved or renamed after being detected.
	RemapPathResolution struct {
		Path string `mapstructure:"path"`
	}
)

const (
	MetadataFailure TroubleType = iota
	DatabaseFailure
	GenericFailure
)

const (
	Retry ResolutionType = iota
	RemapPath
	Abort
)

var (
	ErrResolutionIncompatible        = errors.New("provided resolution method is not valid for this trouble")
	ErrResolutionContextIncompatible = errors.New("provided resolution context is missing required information")
)

var allowedResolutionTypes = map[TroubleType][]ResolutionType{
	MetadataFailure: {Abort, Retry, RemapPath},
	DatabaseFailure: {Abort, Retry},
	GenericFailure:  {Abort, Retry},
}

func (trouble *Trouble) Type() TroubleType { return trouble.tType }

// AllowedResolutionTypes returns the resolutions which can be applied to
// this trouble, based on its type.
func (trouble *Trouble) AllowedResolutionTypes() []ResolutionType {
	if allowed, ok := allowedResolutionTypes[trouble.tType]; ok {
		return allowed
	}

	return make([]ResolutionType, 0)
}

func (trouble *Trouble) isResolutionTypeAllowed(resType ResolutionType) bool {
	for _, allowed := range trouble.AllowedResolutionTypes() {
		if allowed == resType {
			return true
		}
	}

	return false
}

// GenerateResolution validates that the method provided is allowed for
// this trouble, and constructs the matching resolution payload from the
// context given. The returned resolution is one of the resolution structs
// defined by this package.
func (trouble *Trouble) GenerateResolution(resolutionMethod ResolutionType, context map[string]string) (interface{}, error) {
	if !trouble.isResolutionTypeAllowed(resolutionMethod) {
		return nil, ErrResolutionIncompatible
	}

	switch resolutionMethod {
	case Abort:
		return AbortResolution{}, nil
	case Retry:
		return RetryResolution{}, nil
	case RemapPath:
		var resolution RemapPathResolution
		if err := mapstructure.WeakDecode(context, &resolution); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrResolutionContextIncompatible, err)
		}

		if resolution.Path == "" {
			return nil, ErrResolutionContextIncompatible
		}

		return resolution, nil
	default:
		return nil, ErrResolutionIncompatible
	}
}

func (tType TroubleType) String() string {
	switch tType {
	case MetadataFailure:
		return fmt.Sprintf("METADATA_FAILURE[%d]", tType)
	case DatabaseFailure:
		return fmt.Sprintf("DATABASE_FAILURE[%d]", tType)
	case GenericFailure:
		return fmt.Sprintf("GENERIC_FAILURE[%d]", tType)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", tType)
	}
}
