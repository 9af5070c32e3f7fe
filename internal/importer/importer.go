// Package importer reads tab-delimited recipient lists exported from voter
// files and spreadsheets.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/model"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = model.RequiredColumns

// DefaultEncodings is the order encodings are tried in.
var DefaultEncodings = []string{"utf-8", "utf-16", "windows-1252", "iso-8859-1"}

var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8BOM,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"mac-roman":    charmap.Macintosh,
}

// Table is a decoded recipient file.
type Table struct {
	Encoding string
	Header   []string
	Rows     []map[string]string
}

type Importer struct {
	Encodings []string
	Delimiter rune
	Logger    *zap.Logger
}

func New(encodingNames []string, logger *zap.Logger) *Importer {
	if len(encodingNames) == 0 {
		encodingNames = DefaultEncodings
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{Encodings: encodingNames, Delimiter: '\t', Logger: logger}
}

// Import decodes data with the first encoding that yields clean text and a
// well-formed table, then checks the header for the required columns.
func (im *Importer) Import(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &appErrors.ImportError{Err: errors.New("recipient file is empty")}
	}

	var tried []string
	var lastErr error
	for _, name := range im.Encodings {
		key := strings.ToLower(strings.TrimSpace(name))
		enc, ok := encodings[key]
		if !ok {
			return nil, &appErrors.ImportError{Tried: tried, Err: fmt.Errorf("unknown encoding %q", name)}
		}
		tried = append(tried, key)

		table, err := im.parse(data, enc)
		if err != nil {
			im.Logger.Debug("encoding rejected", zap.String("encoding", key), zap.Error(err))
			lastErr = err
			continue
		}
		table.Encoding = key
		im.Logger.Info("recipients decoded",
			zap.String("encoding", key),
			zap.Int("rows", len(table.Rows)))

		if missing := MissingColumns(table.Header); len(missing) > 0 {
			return nil, appErrors.NewMissingColumns(missing)
		}
		return table, nil
	}
	return nil, &appErrors.ImportError{Tried: tried, Err: lastErr}
}

func (im *Importer) parse(data []byte, enc encoding.Encoding) (*Table, error) {
	text, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(text) || bytes.ContainsRune(text, utf8.RuneError) {
		return nil, errors.New("text contains invalid sequences")
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return nil, errors.New("text contains NUL bytes")
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = im.Delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no header row")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Header: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// MissingColumns lists the required columns absent from header, in required order.
func MissingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
