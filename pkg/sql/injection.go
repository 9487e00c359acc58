package sql

import (
	"fmt"
	"regexp"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionError reports an identifier that libinjection flags as SQL injection.
type InjectionError struct {
	Kind        string
	Name        string
	Fingerprint string
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("%s name %q looks like SQL injection (fingerprint %s)", e.Kind, e.Name, e.Fingerprint)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// CheckIdentifier validates a table or column name taken from user input
// before it is interpolated into a statement for a datasource or the cluster.
// kind names the identifier in the error ("table", "column").
func CheckIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", kind)
	}
	if len(name) > 128 {
		return fmt.Errorf("%s name %q is too long", kind, name)
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(name); isSQLi {
		return &InjectionError{Kind: kind, Name: name, Fingerprint: fingerprint}
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

// CheckIdentifiers validates every name in the list.
func CheckIdentifiers(kind string, names []string) error {
	for _, n := range names {
		if err := CheckIdentifier(kind, n); err != nil {
			return err
		}
	}
	return nil
}
