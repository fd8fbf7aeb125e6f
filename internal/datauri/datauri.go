package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalid = errors.New("invalid data URI")

// DataURI is a decoded "data:" URI.
type DataURI struct {
	MIMEType string
	Data     []byte
	// Base64 is the payload re-encoded with standard base64.
	Base64 string
}

// Parse decodes a data URI of the form data:[<mime>][;params][;base64],<payload>.
func Parse(uri string) (*DataURI, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrInvalid)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma", ErrInvalid)
	}

	params := strings.Split(header, ";")
	mimeType := strings.TrimSpace(strings.ToLower(params[0]))
	if mimeType == "" {
		mimeType = "text/plain"
	}

	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		decoded, err := decodeBase64(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		data = []byte(unescaped)
	}

	return &DataURI{
		MIMEType: mimeType,
		Data:     data,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

// IsImage reports whether the MIME type is an image type.
func (d *DataURI) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

// MIMEType returns the media type of uri without decoding the payload.
func MIMEType(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	header, _, ok := strings.Cut(rest, ",")
	if !ok {
		return ""
	}
	mimeType, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)

	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
