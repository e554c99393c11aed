package webdav

import "encoding/xml"

// The following types mirror the DAV: namespace shapes a Class 1
// PROPFIND multistatus response needs — a pared-down version of the
// full property/propstat/response model, since this library has no
// locking or custom dead properties to carry.

type resourceTypeXML struct {
	XMLName    xml.Name `xml:"D:resourcetype"`
	Collection *struct{} `xml:"D:collection,omitempty"`
}

type propXML struct {
	XMLName          xml.Name          `xml:"D:prop"`
	DisplayName      string            `xml:"D:displayname,omitempty"`
	ResourceType     *resourceTypeXML  `xml:"D:resourcetype,omitempty"`
	ContentLength    *int64            `xml:"D:getcontentlength,omitempty"`
	ContentType      string            `xml:"D:getcontenttype,omitempty"`
	LastModified     string            `xml:"D:getlastmodified,omitempty"`
	CreationDate     string            `xml:"D:creationdate,omitempty"`
	ETag             string            `xml:"D:getetag,omitempty"`
}

type propstatXML struct {
	XMLName xml.Name `xml:"D:propstat"`
	Prop    propXML  `xml:"D:prop"`
	Status  string   `xml:"D:status"`
}

type responseXML struct {
	XMLName  xml.Name    `xml:"D:response"`
	Href     string      `xml:"D:href"`
	Propstat propstatXML `xml:"D:propstat"`
}

type multistatusXML struct {
	XMLName   xml.Name      `xml:"D:multistatus"`
	XmlnsD    string        `xml:"xmlns:D,attr"`
	Responses []responseXML `xml:"D:response"`
}

func newMultistatus() *multistatusXML {
	return &multistatusXML{XmlnsD: "DAV:"}
}

func (m *multistatusXML) Marshal() ([]byte, error) {
	out, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
