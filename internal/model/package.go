package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// PackageType is the website tier recommended for a questionnaire.
type PackageType int

const (
	PackageStatic PackageType = iota
	PackageDynamic
	PackageEcommerce
)

// Packages lists every package type in tier order.
var Packages = []PackageType{PackageStatic, PackageDynamic, PackageEcommerce}

var packageNames = map[PackageType]string{
	PackageStatic:    "static",
	PackageDynamic:   "dynamic",
	PackageEcommerce: "ecommerce",
}

func (p PackageType) String() string {
	if name, ok := packageNames[p]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether p is one of the known package types.
func (p PackageType) Valid() bool {
	_, ok := packageNames[p]
	return ok
}

// ParsePackageType converts a package name into a PackageType. Matching is
// case-insensitive.
func ParsePackageType(s string) (PackageType, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for p, name := range packageNames {
		if name == needle {
			return p, nil
		}
	}
	return 0, eris.Errorf("model: unknown package type %q", s)
}

func (p PackageType) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, eris.Errorf("model: cannot marshal package type %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *PackageType) UnmarshalText(text []byte) error {
	parsed, err := ParsePackageType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
