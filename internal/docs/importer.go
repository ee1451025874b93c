package docs

import (
	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/config"
	"quotedesk/internal/formula"
	"quotedesk/internal/logging"
	"quotedesk/internal/storage"
)

// Importer turns parsed price rows into active products. A row whose
// formula does not compile never becomes a product; the diagnostic is
// reported back instead.
type Importer struct {
	db  *storage.DB
	cfg config.Config
	log zerolog.Logger
}

func NewImporter(db *storage.DB, cfg config.Config) *Importer {
	return &Importer{db: db, cfg: cfg, log: logging.Component("docs")}
}

type RejectedRow struct {
	LineNo  int
	Name    string
	Reason  string
	RawLine string
}

type ImportResult struct {
	Parsed   int
	Imported int
	Rejected []RejectedRow
}

func (im *Importer) ImportFile(businessID int64, path string) (ImportResult, error) {
	rows, err := ParseFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	return im.ImportRows(businessID, rows)
}

func (im *Importer) ImportRows(businessID int64, rows []internal.ParsedPriceRow) (ImportResult, error) {
	result := ImportResult{Parsed: len(rows)}
	for _, row := range rows {
		if row.Formula != nil {
			if _, err := formula.Compile(*row.Formula); err != nil {
				im.log.Warn().Err(err).Int("line", row.LineNo).Str("name", row.Name).Msg("price row rejected")
				result.Rejected = append(result.Rejected, RejectedRow{
					LineNo: row.LineNo, Name: row.Name, Reason: err.Error(), RawLine: row.RawLine,
				})
				continue
			}
		}

		rate := im.cfg.BaseRatePerSqIn
		if row.RatePerSqIn != nil {
			rate = *row.RatePerSqIn
		}
		product := internal.ProductRecord{
			BusinessID:  businessID,
			Name:        row.Name,
			Formula:     row.Formula,
			RatePerSqIn: rate,
			MinOrderAmt: im.cfg.MinOrderAmount,
			MinSizeSqIn: row.MinSizeSqIn,
			MaxSizeSqIn: row.MaxSizeSqIn,
			Active:      true,
		}
		if _, err := im.db.InsertProduct(product); err != nil {
			return result, err
		}
		result.Imported++
	}

	im.log.Info().
		Int64("business", businessID).
		Int("parsed", result.Parsed).
		Int("imported", result.Imported).
		Int("rejected", len(result.Rejected)).
		Msg("pricing document imported")
	return result, nil
}
