package content

import (
	"fmt"
	"slices"
)

// Section names a collection of documents.
type Section string

const (
	SectionPersonal   Section = "personal"
	SectionSkills     Section = "skills"
	SectionExperience Section = "experience"
	SectionProjects   Section = "projects"
	SectionEducation  Section = "education"
	SectionPapers     Section = "papers"
	SectionBlog       Section = "blog"

	// SectionMessages holds contact form messages. It is not editable through the
	// content API.
	SectionMessages Section = "messages"
)

// PersonalDocID is the id of the singleton personal document.
const PersonalDocID = "config"

// Editable lists the sections the admin can write to.
var Editable = []Section{
	SectionPersonal,
	SectionSkills,
	SectionExperience,
	SectionProjects,
	SectionEducation,
	SectionPapers,
	SectionBlog,
}

// ParseEditable returns the section named s if the admin may edit it.
func ParseEditable(s string) (Section, error) {
	sec := Section(s)
	if !slices.Contains(Editable, sec) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	return sec, nil
}

// Singleton reports whether the section holds exactly one document.
func (s Section) Singleton() bool {
	return s == SectionPersonal
}
