// Package powerquality maps power-quality classifier outputs to disturbance labels.
package powerquality

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// Class is a power-quality disturbance class.
type Class int

const (
	Normal Class = iota
	Medium
	High
	CSMR
	PGVF
)

var classNames = [...]string{
	Normal: "Normal",
	Medium: "Medium",
	High:   "High",
	CSMR:   "CSMR",
	PGVF:   "PGVF",
}

// Classes returns every class in code order.
func Classes() []Class {
	return []Class{Normal, Medium, High, CSMR, PGVF}
}

// FromCode returns the class predicted as code.
func FromCode(code int) (Class, error) {
	if code < int(Normal) || code > int(PGVF) {
		return 0, errors.NewInvalidInputError("class_code", code, "must be between 0 and 4")
	}
	return Class(code), nil
}

// Parse looks a class up by name, ignoring case.
func Parse(name string) (Class, error) {
	for c, n := range classNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Class(c), nil
		}
	}
	return 0, errors.NewInvalidInputError("class", name, "unknown power-quality class")
}

// Code returns the integer code of c.
func (c Class) Code() int {
	return int(c)
}

func (c Class) String() string {
	if c < Normal || c > PGVF {
		return "Class(" + strconv.Itoa(int(c)) + ")"
	}
	return classNames[c]
}

// MarshalText encodes c by name.
func (c Class) MarshalText() ([]byte, error) {
	if c < Normal || c > PGVF {
		return nil, errors.NewInvalidInputError("class", int(c), "unknown power-quality class")
	}
	return []byte(classNames[c]), nil
}

// UnmarshalText decodes a class name.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
