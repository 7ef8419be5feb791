// Package classify maps vendor CSV export filenames to their source format.
package classify

import (
	"regexp"
	"strings"

	"github.com/folio-dashboard/importer/internal/models"
)

// The stock broker names its exports after the report UUID, e.g.
// 3fa85f64-5717-4562-b3fc-2c963f66afa6.csv.
var stocksExportName = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.csv$`)

// Classify maps a filename to its source format. Rules are evaluated in a
// fixed priority order and the first match wins; patterns are not mutually
// exclusive by construction. The function is pure and total.
func Classify(filename string) models.Classification {
	switch {
	case strings.HasPrefix(filename, "account-statement_"):
		return models.ClassMetals
	case stocksExportName.MatchString(filename):
		return models.ClassStocks
	case strings.Contains(strings.ToLower(filename), "koinly"):
		return models.ClassCrypto
	default:
		return models.ClassUnknown
	}
}
