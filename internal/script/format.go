package script

// Format identifies a command's declared response format. The normalizer
// rewrites json responses; every other format passes through untouched.
type Format int

const (
	FormatJSON Format = iota
	FormatGroongaCommand
	FormatMessagePack
	FormatTSV
	FormatXML
)

var formatNames = map[Format]string{
	FormatJSON:           "json",
	FormatGroongaCommand: "groonga-command",
	FormatMessagePack:    "msgpack",
	FormatTSV:            "tsv",
	FormatXML:            "xml",
}

// String returns the wire name of the format.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat maps an --output_format value to a Format. Unknown values
// fall back to json, which is the server's own default.
func ParseFormat(name string) Format {
	for f, n := range formatNames {
		if n == name {
			return f
		}
	}
	return FormatJSON
}
