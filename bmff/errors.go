package bmff

import "fmt"

// Kind is the top-level error classification returned by every operation
// in this module. Values are significant, not the Go type name: callers
// switch on Kind, not on a concrete error type.
type Kind int

const (
	KindOk Kind = iota
	KindInputDoesNotExist
	KindInvalidInput
	KindUnsupportedFiletype
	KindUnsupportedFeature
	KindUsageError
	KindMemoryAllocationError
	KindDecoderPluginError
	KindEncoderPluginError
	KindColorProfileDoesNotExist
	KindPluginLoadingError
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "Ok"
	case KindInputDoesNotExist:
		return "Input_does_not_exist"
	case KindInvalidInput:
		return "Invalid_input"
	case KindUnsupportedFiletype:
		return "Unsupported_filetype"
	case KindUnsupportedFeature:
		return "Unsupported_feature"
	case KindUsageError:
		return "Usage_error"
	case KindMemoryAllocationError:
		return "Memory_allocation_error"
	case KindDecoderPluginError:
		return "Decoder_plugin_error"
	case KindEncoderPluginError:
		return "Encoder_plugin_error"
	case KindColorProfileDoesNotExist:
		return "Color_profile_does_not_exist"
	case KindPluginLoadingError:
		return "Plugin_loading_error"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// SubKind refines the cause of a Kind.
type SubKind int

const (
	SubNone SubKind = iota
	SubNoFtypBox
	SubNoMetaBox
	SubNoHdlrBox
	SubNoPitmBox
	SubNoIlocBox
	SubNoIinfBox
	SubNoIprpBox
	SubInvalidBoxSize
	SubEndOfData
	SubSecurityLimitExceeded
	SubNonexistingItemReferenced
	SubUnsupportedCodec
	SubInvalidGridData
	SubIpmaReferencesNonexistingProperty
	SubInvalidRegionData
	SubNoCompatibleBrand
)

func (sk SubKind) String() string {
	switch sk {
	case SubNone:
		return "None"
	case SubNoFtypBox:
		return "No_ftyp_box"
	case SubNoMetaBox:
		return "No_meta_box"
	case SubNoHdlrBox:
		return "No_hdlr_box"
	case SubNoPitmBox:
		return "No_pitm_box"
	case SubNoIlocBox:
		return "No_iloc_box"
	case SubNoIinfBox:
		return "No_iinf_box"
	case SubNoIprpBox:
		return "No_iprp_box"
	case SubInvalidBoxSize:
		return "Invalid_box_size"
	case SubEndOfData:
		return "End_of_data"
	case SubSecurityLimitExceeded:
		return "Security_limit_exceeded"
	case SubNonexistingItemReferenced:
		return "Nonexisting_item_referenced"
	case SubUnsupportedCodec:
		return "Unsupported_codec"
	case SubInvalidGridData:
		return "Invalid_grid_data"
	case SubIpmaReferencesNonexistingProperty:
		return "Ipma_box_references_nonexisting_property"
	case SubInvalidRegionData:
		return "Invalid_region_data"
	case SubNoCompatibleBrand:
		return "No_compatible_brand"
	default:
		return "Unknown"
	}
}

// Error is the structured error value returned by every API in this module.
// The message is owned by the Error itself; callers may retain it freely.
type Error struct {
	Kind Kind
	Sub  SubKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("heifbox: %s/%s", e.Kind, e.Sub)
	}
	return fmt.Sprintf("heifbox: %s/%s: %s", e.Kind, e.Sub, e.Msg)
}

// Is lets errors.Is match on Kind+Sub regardless of message, so callers can
// write errors.Is(err, bmff.New(bmff.KindInvalidInput, bmff.SubEndOfData, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Sub == t.Sub
}

// New builds an *Error. A nil *Error is never returned by New; callers
// compare against nil error interfaces as usual.
func New(k Kind, sk SubKind, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: k, Sub: sk, Msg: msg}
}

// ErrEndOfData is returned by reads that would run past a Reader's limit.
func ErrEndOfData(msg string) *Error {
	return New(KindInvalidInput, SubEndOfData, "%s", msg)
}

// ErrSecurityLimit is returned whenever a configured ceiling would be exceeded.
func ErrSecurityLimit(msg string) *Error {
	return New(KindInvalidInput, SubSecurityLimitExceeded, "%s", msg)
}
