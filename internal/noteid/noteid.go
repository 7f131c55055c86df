// Package noteid maps between note identifiers ("<type>/<slug>"),
// filesystem paths, and canonical ids, and validates the names that feed
// them.
package noteid

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/taigrr/flint-note/internal/flinterrors"
)

const maxSlugLen = 120

var (
	namePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	nonAlnumRuns  = regexp.MustCompile(`[^a-z0-9]+`)
	windowsDevice = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])$`)
)

// Slugify lowercases title, replaces runs of non-alphanumerics with "-",
// strips leading/trailing "-", and truncates to 120 characters.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = nonAlnumRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}

// ID joins a note type and slug into the canonical "<type>/<slug>" id.
func ID(noteType, slug string) string {
	return noteType + "/" + slug
}

// Path returns the absolute file path for a note within workspace.
func Path(workspace, noteType, slug string) string {
	return filepath.Join(workspace, noteType, slug+".md")
}

// Filename returns the on-disk filename for a slug.
func Filename(slug string) string {
	return slug + ".md"
}

// Split breaks an identifier into (type, slug). The identifier may carry a
// trailing ".md"; it is stripped. Returns an Invalid error when the
// identifier is not of the "<type>/<slug>" form.
func Split(identifier string) (noteType, slug string, err error) {
	identifier = strings.TrimSpace(identifier)
	identifier = strings.TrimSuffix(identifier, ".md")
	parts := strings.Split(identifier, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", flinterrors.Newf(flinterrors.Invalid,
			"invalid note identifier %q: expected \"<type>/<slug>\"", identifier)
	}
	return parts[0], parts[1], nil
}

// ValidateName accepts type and slug names: [A-Za-z0-9_-]+, length 1..255,
// and not a reserved name.
func ValidateName(name string) error {
	if name == "" || len(name) > 255 {
		return flinterrors.Newf(flinterrors.Invalid, "name %q must be 1-255 characters", name)
	}
	if !namePattern.MatchString(name) {
		return flinterrors.Newf(flinterrors.Invalid,
			"name %q may only contain letters, digits, underscores, and hyphens", name)
	}
	if IsReservedName(name) {
		return flinterrors.Newf(flinterrors.Invalid, "name %q is reserved", name)
	}
	return nil
}

// IsReservedName reports whether name collides with a platform device name
// or the workspace's own metadata directory family.
func IsReservedName(name string) bool {
	lower := strings.ToLower(name)
	if windowsDevice.MatchString(lower) {
		return true
	}
	return lower == ".flint-note" || strings.HasPrefix(lower, ".flint-note")
}

// ValidateTitle rejects empty or whitespace-only titles, and titles whose
// slug would be empty (all punctuation).
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return flinterrors.New(flinterrors.Invalid, "title must not be empty")
	}
	if Slugify(title) == "" {
		return flinterrors.Newf(flinterrors.Invalid,
			"title %q contains no usable characters", title)
	}
	return nil
}
