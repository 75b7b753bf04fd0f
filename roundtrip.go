package daobuilder

import (
	"fmt"
	"os"

	"github.com/everydev1618/daobuilder/session"
)

// Open imports the YAML file at path into a new session.
func Open(path string) (*session.Session, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := session.New()
	if err := s.Import(src); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Reformat imports src and writes it back out in canonical form. References
// survive; key order and layout are normalised.
func Reformat(src []byte) ([]byte, error) {
	s := session.New()
	if err := s.Import(src); err != nil {
		return nil, err
	}
	return s.Export()
}
