package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
)

const header = "Phone\tName\tAge\tSex\tParty Last Primary\tPrecinct Name\tZip Code\n"

func TestImport_UTF8(t *testing.T) {
	data := header +
		"5551234567\tAna\t30\tF\tDEM\tNorth 3\t97201\n" +
		"\n" +
		"5559876543\tBo\t41\tM\tREP\tSouth 1\t97202\n"

	table, err := New(nil, nil).Import([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "utf-8", table.Encoding)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Ana", table.Rows[0]["Name"])
	assert.Equal(t, "5551234567", table.Rows[0]["Phone"])
	assert.Equal(t, "97202", table.Rows[1]["Zip Code"])
}

func TestImport_FallsBackToWindows1252(t *testing.T) {
	text := header + "5551234567\tJosé\t30\tM\tDEM\tNorth 3\t97201\n"
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	table, err := New(nil, nil).Import(data)
	require.NoError(t, err)

	assert.Equal(t, "windows-1252", table.Encoding)
	assert.Equal(t, "José", table.Rows[0]["Name"])
}

func TestImport_UTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	data, err := enc.NewEncoder().Bytes([]byte(header + "5551234567\tZoë\t22\tF\tNPA\tEast 2\t97203\n"))
	require.NoError(t, err)

	table, err := New(nil, nil).Import(data)
	require.NoError(t, err)

	assert.Equal(t, "utf-16", table.Encoding)
	assert.Equal(t, "Zoë", table.Rows[0]["Name"])
}

func TestImport_UTF16WithoutBOMSkipsUTF8(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	data, err := enc.NewEncoder().Bytes([]byte(header + "5551234567\tAna\t30\tF\tDEM\tNorth 3\t97201\n"))
	require.NoError(t, err)

	table, err := New([]string{"utf-8", "utf-16le"}, nil).Import(data)
	require.NoError(t, err)

	assert.Equal(t, "utf-16le", table.Encoding)
	assert.Equal(t, "Ana", table.Rows[0]["Name"])
}

func TestImport_OrderIsRespected(t *testing.T) {
	data := []byte(header + "5551234567\tAna\t30\tF\tDEM\tNorth 3\t97201\n")

	table, err := New([]string{"iso-8859-1", "utf-8"}, nil).Import(data)
	require.NoError(t, err)
	assert.Equal(t, "iso-8859-1", table.Encoding)
}

func TestImport_MissingColumns(t *testing.T) {
	data := []byte("Phone\tName\tAge\n5551234567\tAna\t30\n")

	_, err := New(nil, nil).Import(data)
	require.Error(t, err)

	var ve *appErrors.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
	assert.Contains(t, ve.Reason, "Sex")
	assert.Contains(t, ve.Reason, "Zip Code")
	assert.NotContains(t, ve.Reason, "Phone")
}

func TestImport_NoEncodingParses(t *testing.T) {
	data := []byte{0xff, 0xfe, 0x00}

	_, err := New([]string{"utf-8"}, nil).Import(data)

	var ie *appErrors.ImportError
	require.True(t, errors.As(err, &ie), "expected ImportError, got %v", err)
	assert.Equal(t, []string{"utf-8"}, ie.Tried)
}

func TestImport_Empty(t *testing.T) {
	_, err := New(nil, nil).Import([]byte("  \n"))

	var ie *appErrors.ImportError
	assert.True(t, errors.As(err, &ie))
}

func TestImport_UnknownEncoding(t *testing.T) {
	_, err := New([]string{"utf-8", "klingon"}, nil).Import([]byte{0xff})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "klingon"))
}

func TestMissingColumns(t *testing.T) {
	assert.Empty(t, MissingColumns(RequiredColumns))
	assert.Equal(t, RequiredColumns, MissingColumns(nil))
}
