package versioned

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vault-md/versioned/internal/readingmode"
)

// Validation tags reported by the struct-level check.
const (
	tagUnsupportedMode = "readmode"
	tagRequired        = "required"
	tagDateFormat      = "ymd"
	tagStage           = "stage"
)

var argsValidate *validator.Validate

func init() {
	argsValidate = validator.New()
	argsValidate.RegisterStructValidation(validateQueryArgs, QueryArgs{})
}

func validateQueryArgs(sl validator.StructLevel) {
	args := sl.Current().Interface().(QueryArgs)

	switch args.Mode {
	case ModeDraft, ModeLive, ModeAllVersions, ModeLatestVersions:
	case ModeArchive:
		if args.ArchiveDate == nil || *args.ArchiveDate == "" {
			sl.ReportError(args.ArchiveDate, "ArchiveDate", "ArchiveDate", tagRequired, string(args.Mode))
			return
		}
		if _, err := readingmode.ParseDate(*args.ArchiveDate); err != nil {
			sl.ReportError(*args.ArchiveDate, "ArchiveDate", "ArchiveDate", tagDateFormat, *args.ArchiveDate)
		}
		if args.ArchiveStage != "" {
			if err := readingmode.ValidateStage(args.ArchiveStage); err != nil {
				sl.ReportError(args.ArchiveStage, "ArchiveStage", "ArchiveStage", tagStage, string(args.ArchiveStage))
			}
		}
	case ModeStatus:
		if len(args.Status) == 0 {
			sl.ReportError(args.Status, "Status", "Status", tagRequired, string(args.Mode))
		}
	case ModeVersion:
		if args.Version == nil {
			sl.ReportError(args.Version, "Version", "Version", tagRequired, string(args.Mode))
		}
	default:
		sl.ReportError(args.Mode, "Mode", "Mode", tagUnsupportedMode, string(args.Mode))
	}
}

// Validate checks that args carries exactly what its mode needs. Fields
// irrelevant to the mode are ignored.
func Validate(args QueryArgs) error {
	err := argsValidate.Struct(args)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate query args: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case tagUnsupportedMode:
		return invalidArgument(fe.Field(), "Unsupported read mode %s", fe.Param())
	case tagDateFormat:
		return invalidArgument(fe.Field(), "Invalid date: %q. Must be YYYY-MM-DD format", fe.Param())
	case tagStage:
		return invalidArgument(fe.Field(), "Invalid archive stage %q (valid values: Draft, Live)", fe.Param())
	case tagRequired:
		switch fe.Field() {
		case "ArchiveDate":
			return invalidArgument(fe.Field(), "You must provide an ArchiveDate value when using the archive mode")
		case "Status":
			return invalidArgument(fe.Field(), "You must provide a Status value when using the status mode")
		case "Version":
			return invalidArgument(fe.Field(), "You must provide a Version value when using the version mode")
		}
	}
	return invalidArgument(fe.Field(), "invalid %s: %s", fe.Field(), fe.Tag())
}
