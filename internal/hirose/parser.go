// Package hirose reads the Hirose LION FX settlement CSV export and maps its
// rows onto the canonical trade shape.
//
// The export is a fixed 21-column comma-delimited file, encoded in UTF-8 or a
// Japanese legacy encoding, with metadata lines above the header. Rows are
// split naively on commas with quote stripping; embedded commas inside quoted
// fields are not handled, which is acceptable for this fixed-format export
// but must be revisited before pointing the parser at anything else.
package hirose

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ErrHeaderNotFound means the file is not a recognizable Hirose export.
var ErrHeaderNotFound = errors.New("hirose: header row not found")

const columnCount = 21

// headerScanLines bounds how deep the header scan looks; the export puts a
// few metadata lines above the header, never more than a handful.
const headerScanLines = 10

// requiredHeaderTokens are the four column names the header scan looks for.
// A line carrying at least three of them is accepted as the header, so minor
// rewordings of a single column survive.
var requiredHeaderTokens = []string{"決済約定日時", "通貨ペア", "売買", "売買損益"}

// fullHeaderLine is the exact 21-column header; an exact match is accepted
// even if the token threshold were to fail.
const fullHeaderLine = "決済約定日時,注文番号,ポジション番号,通貨ペア,両建区分,注文方法,約定区分,執行条件,指定レート,売買,Lot数,新規約定日時,新規約定値,決済値,pip損益,円換算レート,売買損益,手数料,スワップ損益,決済損益,経路"

// RawRow is one data row in export column order, untouched by any unit
// conversion. Field names follow the meaning of the columns, not their
// position.
type RawRow struct {
	SettledAt    string // 決済約定日時
	OrderNo      string
	PositionNo   string
	Pair         string // 通貨ペア
	HedgeFlag    string
	OrderMethod  string
	FillClass    string
	ExecCond     string
	SpecRate     string
	Side         string // 売買 — the CLOSING action
	Lots         string // broker 1,000-unit lots
	OpenedAt     string // 新規約定日時
	OpenRate     string
	CloseRate    string
	PipPL        string // broker pip scale (x10)
	YenConvRate  string
	TradePL      string // 売買損益
	Commission   string
	SwapPL       string
	SettlementPL string // 決済損益 — net result used as profit/loss
	Channel      string
}

// Parse decodes the raw CSV bytes, locates the header and returns the data
// rows. Rows missing any essential column (pair, settlement P/L, entry or
// exit datetime) are skipped rather than failing the file; only a missing
// header fails the whole import.
func Parse(raw []byte) ([]RawRow, error) {
	lines := splitLines(decodeText(raw))

	headerIdx, err := findHeader(lines)
	if err != nil {
		return nil, err
	}

	var rows []RawRow
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := splitColumns(line)
		if len(cols) < columnCount {
			continue
		}
		row := rowFromColumns(cols)
		if row.Pair == "" || row.SettlementPL == "" || row.OpenedAt == "" || row.SettledAt == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeText returns the file content as UTF-8. The bytes are read as UTF-8
// first; when that produces replacement characters the raw bytes are
// re-decoded trying Shift-JIS, EUC-JP and ISO-2022-JP in order, keeping the
// first decode that does not error. The x/text Shift-JIS codec implements
// the CP932 superset, so that attempt covers both.
func decodeText(raw []byte) string {
	s := string(raw)
	if utf8.ValidString(s) && !strings.ContainsRune(s, utf8.RuneError) {
		return s
	}

	codecs := []encoding.Encoding{japanese.ShiftJIS, japanese.EUCJP, japanese.ISO2022JP}
	for _, c := range codecs {
		out, _, err := transform.Bytes(c.NewDecoder(), raw)
		if err == nil {
			return string(out)
		}
	}
	return s
}

// findHeader scans the first few lines for a line carrying at least 3 of the
// 4 required column names, or the exact full header.
func findHeader(lines []string) (int, error) {
	limit := headerScanLines
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if line == fullHeaderLine {
			return i, nil
		}
		tokens := 0
		for _, tok := range requiredHeaderTokens {
			if strings.Contains(line, tok) {
				tokens++
			}
		}
		if tokens >= 3 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: scanned %d lines", ErrHeaderNotFound, limit)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func splitColumns(line string) []string {
	cols := strings.Split(line, ",")
	for i, c := range cols {
		cols[i] = strings.TrimSpace(strings.ReplaceAll(c, `"`, ""))
	}
	return cols
}

func rowFromColumns(cols []string) RawRow {
	return RawRow{
		SettledAt:    cols[0],
		OrderNo:      cols[1],
		PositionNo:   cols[2],
		Pair:         cols[3],
		HedgeFlag:    cols[4],
		OrderMethod:  cols[5],
		FillClass:    cols[6],
		ExecCond:     cols[7],
		SpecRate:     cols[8],
		Side:         cols[9],
		Lots:         cols[10],
		OpenedAt:     cols[11],
		OpenRate:     cols[12],
		CloseRate:    cols[13],
		PipPL:        cols[14],
		YenConvRate:  cols[15],
		TradePL:      cols[16],
		Commission:   cols[17],
		SwapPL:       cols[18],
		SettlementPL: cols[19],
		Channel:      cols[20],
	}
}
