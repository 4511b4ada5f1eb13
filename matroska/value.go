package matroska

import "github.com/tagkit/tagkit/tagvalue"

// textValue builds a UTF-8 TagValue Text for a SimpleTag's TagString child,
// which is always UTF-8 on the wire in Matroska.
func textValue(s string) tagvalue.Value {
	v, _ := tagvalue.NewText(s, tagvalue.Utf8)
	return v
}

// binaryValue builds a Binary TagValue for a SimpleTag's TagBinary child.
func binaryValue(data []byte) tagvalue.Value {
	return tagvalue.NewBinary(data)
}
