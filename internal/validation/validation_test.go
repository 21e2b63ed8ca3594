package validation

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	valid := []string{"Abc12345!", "Secr3t#Pass", "xY9(zzzz"}
	for _, p := range valid {
		assert.NoError(t, ValidatePassword(p), p)
	}

	invalid := []string{
		"Ab1!",      // too short
		"abc12345!", // no uppercase
		"ABC12345!", // no lowercase
		"Abcdefgh!", // no digit
		"Abc123456", // no special
		"Abc12345?", // special outside the allowed set
		string(bytes.Repeat([]byte("Aa1!"), 20)),
	}
	for _, p := range invalid {
		assert.Error(t, ValidatePassword(p), p)
	}
}

func TestValidatePersonName(t *testing.T) {
	assert.NoError(t, ValidatePersonName("Ada"))
	assert.Error(t, ValidatePersonName(""))
	assert.Error(t, ValidatePersonName("Ada2"))
	assert.Error(t, ValidatePersonName("Mary Ann"))
}

func TestValidateAccountName(t *testing.T) {
	assert.NoError(t, ValidateAccountName("acme-corp_2"))
	assert.Error(t, ValidateAccountName(""))
	assert.Error(t, ValidateAccountName("acme/corp"))
	assert.Error(t, ValidateAccountName("acme corp"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ada@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Ada <ada@example.com>"))
	assert.Error(t, ValidateEmail("ada@localhost"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@x.com"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func multipartHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestDetectUpload(t *testing.T) {
	ct, err := DetectUpload(multipartHeader(t, "notes.txt", []byte("hello world")), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", ct)

	ct, err = DetectUpload(multipartHeader(t, "empty.txt", nil), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", ct)

	_, err = DetectUpload(multipartHeader(t, "big.bin", bytes.Repeat([]byte("x"), 2048)), 1024)
	assert.Error(t, err)
}
