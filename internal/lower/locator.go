package lower

// LocatorLines returns the body of the synthetic LocatorType message appended
// to every output. A referenced payload lives outside the current message so
// it is addressed by a variable length list of coordinates.
func LocatorLines() []Line {
	return []Line{
		{Text: "repeated int32 coordinate = 1 [packed=true];"},
	}
}
