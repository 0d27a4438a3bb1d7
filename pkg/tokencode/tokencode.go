package tokencode

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Token codes have the form TRX-YYYY-XXXX-AAAAA: the 4-digit year, a 4-letter
// material code and a 5-character random suffix. Codes are globally unique;
// callers must retry on the (rare) collision reported by the unique index.

const suffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Pattern matches a well-formed token code.
var Pattern = regexp.MustCompile(`^TRX-\d{4}-[A-Z]{4}-[A-Z0-9]{5}$`)

var materialCodes = map[string]string{
	"plastic":     "PLST",
	"metal":       "METL",
	"organic":     "ORGN",
	"paper":       "PAPR",
	"glass":       "GLAS",
	"electronics": "ELEC",
	"textile":     "TEXT",
}

// MaterialCode returns the 4-letter code for a material type, OTHR if the
// material is not one of the known types.
func MaterialCode(materialType string) string {
	if code, ok := materialCodes[strings.ToLower(strings.TrimSpace(materialType))]; ok {
		return code
	}
	return "OTHR"
}

// Generate builds a new token code for the given material type and time.
func Generate(materialType string, now time.Time) string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("tokencode: crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = suffixCharset[int(b)%len(suffixCharset)]
	}
	return fmt.Sprintf("TRX-%04d-%s-%s", now.Year(), MaterialCode(materialType), string(buf))
}

// Validate reports whether code is a well-formed token code.
func Validate(code string) bool {
	return Pattern.MatchString(code)
}
