// package langtag wraps x/text/language for the transcript language column,
// implementing the pgx v5 text scan/value interfaces. The undefined tag maps
// to SQL NULL in both directions.
package langtag

import (
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
)

type Tag language.Tag

// Und is the zero value: language unknown / not yet detected.
var Und = Tag(language.Und)

// Parse parses a BCP-47 tag such as "en" or "pt-BR".
func Parse(s string) (Tag, error) {
	t, err := language.Parse(s)
	if err != nil {
		return Und, err
	}
	return Tag(t), nil
}

func (t Tag) String() string {
	if t == Und {
		return ""
	}
	return language.Tag(t).String()
}

// ScanText implements the pgtype.TextScanner interface for pgx v5.
func (t *Tag) ScanText(v pgtype.Text) error {
	if !v.Valid {
		*t = Und
		return nil
	}

	parsed, err := language.Parse(v.String)
	if err != nil {
		return err
	}

	*t = Tag(parsed)
	return nil
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (t Tag) TextValue() (pgtype.Text, error) {
	if t == Und {
		return pgtype.Text{Valid: false}, nil
	}

	return pgtype.Text{String: language.Tag(t).String(), Valid: true}, nil
}
