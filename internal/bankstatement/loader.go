// Package bankstatement loads the bank-provided spreadsheet and turns its
// rows into normalized BankMovement records ready for matching.
package bankstatement

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/models"
	"ncastro/comprobantes/internal/normalize"
	"ncastro/comprobantes/internal/recerror"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Load reads the spreadsheet at path and returns one BankMovement per row
// that survives normalization. Rows with a missing tax-id, an unparsable
// date or a non-positive amount are dropped with a warning; they must
// never reach the matcher with a null key. A configured column that is
// absent from the sheet is a ConfigError listing missing and available
// columns.
func Load(path string, cfg *config.Config) ([]models.BankMovement, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &recerror.SourceNotFoundError{Path: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening bank statement %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close bank statement")
		}
	}()

	sheet := cfg.ExcelOptions.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("bank statement %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q: %w", sheet, err)
	}

	skip := cfg.ExcelOptions.SkipRows
	if skip > len(rows) {
		skip = len(rows)
	}
	rows = rows[skip:]

	headerRow := cfg.ExcelOptions.HeaderRow
	if headerRow >= len(rows) {
		return nil, fmt.Errorf("header row %d is beyond the end of sheet %q", headerRow, sheet)
	}
	header := rows[headerRow]
	data := rows[headerRow+1:]

	cols, err := resolveColumns(header, cfg)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"file":  path,
		"sheet": sheet,
		"rows":  len(data),
	}).Info("Loading bank statement")

	movements := make([]models.BankMovement, 0, len(data))
	for i, row := range data {
		// 1-based row number in the original sheet.
		rowNum := skip + headerRow + 1 + i + 1

		rawFecha := cell(row, cols.fecha)
		rawCUIT := cell(row, cols.cuit)
		rawMonto := cell(row, cols.monto)

		if rawFecha == "" && rawCUIT == "" && rawMonto == "" {
			continue
		}

		cuit := normalize.TaxID(rawCUIT)
		if cuit == "" {
			log.WithField("row", rowNum).Warn("Dropping bank row without tax-id")
			continue
		}

		fecha, ok := normalize.Date(rawFecha, cfg.DataFormats.FechaFormat)
		if !ok {
			log.WithFields(logrus.Fields{"row": rowNum, "fecha": rawFecha}).
				Warn("Dropping bank row with unparsable date")
			continue
		}

		monto, ok := normalize.Amount(rawMonto,
			cfg.DataFormats.MontoDecimalSeparator, cfg.DataFormats.MontoThousandsSeparator)
		if !ok || !monto.IsPositive() {
			log.WithFields(logrus.Fields{"row": rowNum, "monto": rawMonto}).
				Warn("Dropping bank row with invalid amount")
			continue
		}

		movements = append(movements, models.BankMovement{
			RawFecha: rawFecha,
			RawCUIT:  rawCUIT,
			RawMonto: rawMonto,
			Fecha:    fecha,
			CUIT:     cuit,
			Monto:    monto,
			Row:      rowNum,
		})
	}

	log.WithField("count", len(movements)).Info("Bank statement loaded")
	return movements, nil
}

type columnIndexes struct {
	fecha int
	cuit  int
	monto int
}

func resolveColumns(header []string, cfg *config.Config) (columnIndexes, error) {
	available := make([]string, 0, len(header))
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		available = append(available, name)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	wanted := map[string]string{
		"fecha": cfg.ColumnMapping.Fecha,
		"cuit":  cfg.ColumnMapping.CUIT,
		"monto": cfg.ColumnMapping.Monto,
	}

	var missing []string
	for _, name := range []string{wanted["fecha"], wanted["cuit"], wanted["monto"]} {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndexes{}, &recerror.ConfigError{
			MissingColumns:   missing,
			AvailableColumns: available,
		}
	}

	return columnIndexes{
		fecha: index[wanted["fecha"]],
		cuit:  index[wanted["cuit"]],
		monto: index[wanted["monto"]],
	}, nil
}

// cell returns the trimmed value at idx, tolerating the ragged rows
// excelize produces when trailing cells are empty.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
