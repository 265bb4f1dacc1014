package protoz

import (
	"encoding/xml"

	"gopkg.microglot.org/protozc/internal/schema"
)

type xmlDocument struct {
	XMLName  xml.Name
	Messages []xmlMessage `xml:"message"`
	Enums    []xmlEnum    `xml:"enum"`
}

type xmlMessage struct {
	pos         schema.Pos
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr"`
	// Fields and indices share one slice to keep their relative order.
	Entries []xmlEntry `xml:",any"`
}

type xmlEntry struct {
	pos         schema.Pos
	XMLName     xml.Name
	ID          string  `xml:"id,attr"`
	Name        string  `xml:"name,attr"`
	Description string  `xml:"description,attr"`
	Modifier    string  `xml:"modifier,attr"`
	Type        string  `xml:"type,attr"`
	EnumType    string  `xml:"enumType,attr"`
	MessageType string  `xml:"messageType,attr"`
	Default     *string `xml:"default,attr"`
	ForField    string  `xml:"forField,attr"`
	SortBy      string  `xml:"sortBy,attr"`
}

type xmlEnum struct {
	pos         schema.Pos
	Name        string        `xml:"name,attr"`
	Description string        `xml:"description,attr"`
	Items       []xmlEnumItem `xml:"enumItem"`
}

type xmlEnumItem struct {
	pos         schema.Pos
	Name        string  `xml:"name,attr"`
	Description string  `xml:"description,attr"`
	Value       *string `xml:"value,attr"`
}

// The decoder reports the position just past the start tag it has consumed.
// That is the closing bracket of the tag, which is on the declaration's line
// for the usual one line declarations.
func position(d *xml.Decoder) schema.Pos {
	line, column := d.InputPos()
	return schema.Pos{Line: int32(line), Column: int32(column)}
}

func (m *xmlMessage) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain xmlMessage
	p := plain{pos: position(d)}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*m = xmlMessage(p)
	return nil
}

func (e *xmlEntry) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain xmlEntry
	p := plain{pos: position(d)}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*e = xmlEntry(p)
	return nil
}

func (e *xmlEnum) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain xmlEnum
	p := plain{pos: position(d)}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*e = xmlEnum(p)
	return nil
}

func (i *xmlEnumItem) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain xmlEnumItem
	p := plain{pos: position(d)}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*i = xmlEnumItem(p)
	return nil
}
