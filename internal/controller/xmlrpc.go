package controller

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Minimal XML-RPC codec covering the value shapes rTorrent responds with:
// strings, integers, booleans, and nested arrays.

type xmlValue struct {
	String  *string    `xml:"string"`
	I4      *int64     `xml:"i4"`
	I8      *int64     `xml:"i8"`
	Int     *int64     `xml:"int"`
	Boolean *string    `xml:"boolean"`
	Array   *xmlArray  `xml:"array"`
	Struct  *xmlStruct `xml:"struct"`
	Raw     string     `xml:",chardata"`
}

type xmlArray struct {
	Values []xmlValue `xml:"data>value"`
}

type xmlStruct struct {
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	Name  string   `xml:"name"`
	Value xmlValue `xml:"value"`
}

type methodResponse struct {
	XMLName xml.Name   `xml:"methodResponse"`
	Params  []xmlValue `xml:"params>param>value"`
	Fault   *xmlValue  `xml:"fault>value"`
}

func (v xmlValue) text() string {
	if v.String != nil {
		return *v.String
	}
	return strings.TrimSpace(v.Raw)
}

func (v xmlValue) asInt64() (int64, error) {
	switch {
	case v.I8 != nil:
		return *v.I8, nil
	case v.I4 != nil:
		return *v.I4, nil
	case v.Int != nil:
		return *v.Int, nil
	case v.Boolean != nil:
		if strings.TrimSpace(*v.Boolean) == "1" {
			return 1, nil
		}
		return 0, nil
	}
	parsed, err := strconv.ParseInt(v.text(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("xmlrpc value %q is not an integer", v.text())
	}
	return parsed, nil
}

func (v xmlValue) asBool() (bool, error) {
	n, err := v.asInt64()
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func (v xmlValue) values() []xmlValue {
	if v.Array == nil {
		return nil
	}
	return v.Array.Values
}

func (v xmlValue) member(name string) (xmlValue, bool) {
	if v.Struct == nil {
		return xmlValue{}, false
	}
	for _, m := range v.Struct.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return xmlValue{}, false
}

// marshalCall renders an XML-RPC methodCall. Only string parameters are
// needed for the rTorrent commands shuttle issues.
func marshalCall(method string, params []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("<methodCall><methodName>")
	xml.EscapeText(&buf, []byte(method))
	buf.WriteString("</methodName><params>")
	for _, param := range params {
		buf.WriteString("<param><value><string>")
		xml.EscapeText(&buf, []byte(param))
		buf.WriteString("</string></value></param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes()
}

// parseResponse decodes a methodResponse body and surfaces faults as errors.
func parseResponse(body []byte) (xmlValue, error) {
	var resp methodResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return xmlValue{}, fmt.Errorf("decode xmlrpc response: %w", err)
	}
	if resp.Fault != nil {
		code := int64(0)
		message := resp.Fault.text()
		if v, ok := resp.Fault.member("faultCode"); ok {
			code, _ = v.asInt64()
		}
		if v, ok := resp.Fault.member("faultString"); ok {
			message = v.text()
		}
		return xmlValue{}, &Fault{Code: int(code), Message: message}
	}
	if len(resp.Params) == 0 {
		return xmlValue{}, nil
	}
	return resp.Params[0], nil
}

// Fault is an XML-RPC level failure reported by the controller.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("controller fault %d: %s", f.Code, f.Message)
}
