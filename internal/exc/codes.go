package exc

const (
	CodeUnknownFatal                  = "M0000"
	CodeFileNotFound                  = "M0001"
	CodeUnsuportedFileSystemOperation = "M0002"
	CodePermissionDenied              = "M0003"
	CodeUnsupportedFileFormat         = "M0004"
	CodeUnexpectedEOF                 = "M0005"
	CodeProtobufParseError            = "M0006"
	CodeInvalidNumber                 = "M0007"
	CodeMalformedSchema               = "M0008"
	CodeUnresolvedField               = "M0009"
	CodeUnresolvedEnum                = "M0010"
)

const (
	CodeEOF = "_EOF_"
)

var (
	// Generated text is always written even when the protobuf parser
	// disagrees with it.
	defaultNonFatal = map[string]bool{
		CodeProtobufParseError: true,
	}
)
