package session

import (
	"tmscraper/pkg/errors"
)

// MinClasses is the fewest classes a scrape configuration may hold
const MinClasses = 2

// ClassConfig is one training class: its label, the search query that
// finds its images and the folder they are downloaded into.
type ClassConfig struct {
	Name   string `json:"name"`
	Query  string `json:"query"`
	Folder string `json:"folder"`
}

// Validate checks each field
func (c ClassConfig) Validate() error {
	if err := ValidateClassName(c.Name); err != nil {
		return errors.Wrap(errors.ErrorTypeValidation, err, "class name")
	}
	if err := ValidateQuery(c.Query); err != nil {
		return err
	}
	if err := ValidateFilename(c.Folder); err != nil {
		return errors.Wrap(errors.ErrorTypeValidation, err, "class folder")
	}
	return nil
}

// NewClassDefaults returns the values given to a freshly added class
func NewClassDefaults() ClassConfig {
	return ClassConfig{Name: "New Class", Query: "someclass", Folder: "someclass"}
}

// ScrapeConfiguration is the ordered list of classes to scrape
type ScrapeConfiguration struct {
	Classes []ClassConfig `json:"classes"`
}

// NewScrapeConfiguration returns the two starter classes
func NewScrapeConfiguration() *ScrapeConfiguration {
	return &ScrapeConfiguration{
		Classes: []ClassConfig{
			{Name: "Class 1", Query: "cat", Folder: "cat"},
			{Name: "Class 2", Query: "dog", Folder: "dog"},
		},
	}
}

// ClassList returns a copy of the class list
func (s *ScrapeConfiguration) ClassList() []ClassConfig {
	out := make([]ClassConfig, len(s.Classes))
	copy(out, s.Classes)
	return out
}

func (s *ScrapeConfiguration) Len() int { return len(s.Classes) }

// Class returns the class at i
func (s *ScrapeConfiguration) Class(i int) (ClassConfig, error) {
	if err := s.checkIndex(i); err != nil {
		return ClassConfig{}, err
	}
	return s.Classes[i], nil
}

// IndexByName returns the index of the class called name, or -1
func (s *ScrapeConfiguration) IndexByName(name string) int {
	for i, c := range s.Classes {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// AddClass appends a validated class with a unique name
func (s *ScrapeConfiguration) AddClass(name, query, folder string) error {
	c := ClassConfig{Name: name, Query: query, Folder: folder}
	if err := c.Validate(); err != nil {
		return err
	}
	if s.IndexByName(name) >= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "a class named %q already exists", name)
	}
	s.Classes = append(s.Classes, c)
	return nil
}

// EditClass replaces the class at i
func (s *ScrapeConfiguration) EditClass(i int, name, query, folder string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	c := ClassConfig{Name: name, Query: query, Folder: folder}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.checkUnique(i, name); err != nil {
		return err
	}
	s.Classes[i] = c
	return nil
}

// RemoveClass deletes the class at i unless that would leave fewer than
// MinClasses.
func (s *ScrapeConfiguration) RemoveClass(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if len(s.Classes)-1 < MinClasses {
		return errors.Newf(errors.ErrorTypeValidation, "at least %d classes are required", MinClasses)
	}
	s.Classes = append(s.Classes[:i], s.Classes[i+1:]...)
	return nil
}

func (s *ScrapeConfiguration) SetName(i int, name string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := ValidateClassName(name); err != nil {
		return err
	}
	if err := s.checkUnique(i, name); err != nil {
		return err
	}
	s.Classes[i].Name = name
	return nil
}

func (s *ScrapeConfiguration) SetQuery(i int, query string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := ValidateQuery(query); err != nil {
		return err
	}
	s.Classes[i].Query = query
	return nil
}

func (s *ScrapeConfiguration) SetFolder(i int, folder string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := ValidateFilename(folder); err != nil {
		return err
	}
	s.Classes[i].Folder = folder
	return nil
}

// Validate checks every class and name uniqueness
func (s *ScrapeConfiguration) Validate() error {
	if len(s.Classes) < MinClasses {
		return errors.Newf(errors.ErrorTypeValidation, "at least %d classes are required, got %d", MinClasses, len(s.Classes))
	}
	seen := make(map[string]bool, len(s.Classes))
	for i, c := range s.Classes {
		if err := c.Validate(); err != nil {
			return errors.Wrap(errors.ErrorTypeValidation, err, "class "+c.Name)
		}
		if seen[c.Name] {
			return errors.Newf(errors.ErrorTypeValidation, "class %d: duplicate name %q", i+1, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func (s *ScrapeConfiguration) checkIndex(i int) error {
	if i < 0 || i >= len(s.Classes) {
		return errors.Newf(errors.ErrorTypeValidation, "class index %d out of range", i)
	}
	return nil
}

func (s *ScrapeConfiguration) checkUnique(i int, name string) error {
	if j := s.IndexByName(name); j >= 0 && j != i {
		return errors.Newf(errors.ErrorTypeValidation, "a class named %q already exists", name)
	}
	return nil
}
