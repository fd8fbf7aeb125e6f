package datauri

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Base64Image(t *testing.T) {
	d, err := Parse("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	require.Equal(t, "image/png", d.MIMEType)
	require.Equal(t, []byte("hello"), d.Data)
	require.Equal(t, "aGVsbG8=", d.Base64)
	require.True(t, d.IsImage())
}

func TestParse_UnpaddedAndWrappedBase64(t *testing.T) {
	d, err := Parse("data:image/jpeg;base64,aGVs\nbG8")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), d.Data)
	require.Equal(t, "aGVsbG8=", d.Base64)
}

func TestParse_PlainPayload(t *testing.T) {
	d, err := Parse("data:,hello%20world")
	require.NoError(t, err)
	require.Equal(t, "text/plain", d.MIMEType)
	require.Equal(t, "hello world", string(d.Data))
	require.False(t, d.IsImage())
}

func TestParse_Invalid(t *testing.T) {
	for _, uri := range []string{
		"https://example.com/cat.png",
		"data:image/png;base64",
		"data:image/png;base64,!!!",
	} {
		_, err := Parse(uri)
		require.True(t, errors.Is(err, ErrInvalid), uri)
	}
}

func TestMIMEType(t *testing.T) {
	require.Equal(t, "image/webp", MIMEType("data:Image/WebP;base64,AAAA"))
	require.Equal(t, "", MIMEType("not a data uri"))
	require.Equal(t, "", MIMEType("data:image/png"))
}
