package config

// Package version of newly created books.
// ENUM(epub2, epub3)
type EpubVersion int

// PackageVersion returns value for version attribute of package document.
func (v EpubVersion) PackageVersion() string {
	if v == EpubVersionEpub2 {
		return "2.0"
	}
	return "3.0"
}

// How default folders for new resources are chosen.
// ENUM(standard, inferred)
type LayoutMode int
