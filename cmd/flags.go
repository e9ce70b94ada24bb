package cmd

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/kosavsech/SchoolDiary-sub000/internal/dateparse"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

// dateFlag is a pflag.Value accepting anything dateparse understands.
type dateFlag struct {
	t   time.Time
	raw string
}

var _ pflag.Value = (*dateFlag)(nil)

func (d *dateFlag) String() string {
	if d.t.IsZero() {
		return d.raw
	}
	return d.t.Format(models.DateLayout)
}

func (d *dateFlag) Set(s string) error {
	t, err := dateparse.Parse(s)
	if err != nil {
		return err
	}
	d.t, d.raw = t, s
	return nil
}

func (d *dateFlag) Type() string { return "date" }

// Time resolves the flag. An unset flag with a keyword default such as
// "today" is parsed at call time.
func (d *dateFlag) Time() (time.Time, error) {
	if !d.t.IsZero() || d.raw == "" {
		return d.t, nil
	}
	return dateparse.Parse(d.raw)
}

// addDateFlag registers a date flag whose default is parsed lazily.
func addDateFlag(fs *pflag.FlagSet, name, shorthand, def, usage string) *dateFlag {
	d := &dateFlag{raw: def}
	fs.VarP(d, name, shorthand, usage)
	return d
}
