package schema

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	contentLen uint16
	pages      [][]byte
	infoErr    error
	pageErr    error
}

func (f *fakeReader) DevmapInfo(ctx context.Context) (uint16, error) {
	return f.contentLen, f.infoErr
}

func (f *fakeReader) DevmapPage(ctx context.Context, page uint32) ([]byte, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.pages[page], nil
}

func encodeDocument(t *testing.T, jsonBody string) []byte {
	t.Helper()
	var deflated bytes.Buffer
	w, err := flate.NewWriter(&deflated, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(jsonBody))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	encoded := base64.StdEncoding.EncodeToString(deflated.Bytes())
	return []byte(encoded)
}

func pagesOf(raw []byte) [][]byte {
	var pages [][]byte
	for i := 0; i < len(raw); i += pageSize {
		end := i + pageSize
		page := make([]byte, pageSize)
		if end > len(raw) {
			copy(page, raw[i:])
		} else {
			copy(page, raw[i:end])
		}
		pages = append(pages, page)
	}
	return pages
}

func TestExtractRoundTrip(t *testing.T) {
	body := `{
		"APP_SPACE": [{"name":"directLEDColour","offset":84,"size":4,"type":"u32","notify-device":8,"set-via-parameter-buffer":true}],
		"eDEV_FCP_USER_MESSAGE_TYPE": [{"name":"DIRECT_LED","id":8}],
		"device-specification": {"physical-inputs":[{"label":"Mic 1"},{"label":"Mic 2"}],"destinations":[{"type":"host","router-pin":0}]},
		"kMAX_NUMBER_LEDS": 40
	}`
	encoded := encodeDocument(t, body)
	pages := pagesOf(encoded)

	r := &fakeReader{contentLen: uint16(len(encoded)), pages: pages}
	doc, err := Extract(context.Background(), r)
	require.NoError(t, err)

	field, ok := doc.FieldByName("directLEDColour")
	require.True(t, ok)
	assert.Equal(t, 84, field.Offset)
	assert.Equal(t, int32(8), field.NotifyDevice)

	assert.Len(t, doc.DeviceSpec.PhysicalInputs, 2)
	assert.Equal(t, 40, doc.MaxNumberLEDs)
}

func TestExtractPropagatesInfoError(t *testing.T) {
	r := &fakeReader{infoErr: assertError{"boom"}}
	_, err := Extract(context.Background(), r)
	require.Error(t, err)
}

func TestVerifyUserMessageTypesReportsMismatch(t *testing.T) {
	doc := &Document{UserMessageTypes: []UserMessageType{{Name: "DIRECT_LED", ID: 8}}}
	mismatches := doc.VerifyUserMessageTypes(map[string]int32{"DIRECT_LED": 9, "OTHER": 1})
	assert.ElementsMatch(t, []string{"DIRECT_LED", "OTHER"}, mismatches)
}

func TestVerifyUserMessageTypesNoMismatch(t *testing.T) {
	doc := &Document{UserMessageTypes: []UserMessageType{{Name: "DIRECT_LED", ID: 8}}}
	mismatches := doc.VerifyUserMessageTypes(map[string]int32{"DIRECT_LED": 8})
	assert.Empty(t, mismatches)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
