package data

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
)

// An ArchiveType is the type of a model archive, identified by its file
// extension.
type ArchiveType string

// Archive types.
const (
	ArchiveTypeTarBz2 ArchiveType = ".tar.bz2"
	ArchiveTypeZip    ArchiveType = ".zip"
)

// ParseArchiveType parses an archive type from its extension, with or without
// the leading dot.
func ParseArchiveType(s string) (ArchiveType, error) {
	switch archiveType := ArchiveType("." + strings.TrimPrefix(s, ".")); archiveType {
	case ArchiveTypeTarBz2, ArchiveTypeZip:
		return archiveType, nil
	default:
		return "", fmt.Errorf("%s: unknown archive type", s)
	}
}

// DefaultBaseURL is the default base URL from which models are downloaded.
const DefaultBaseURL = "https://downloads.sourceforge.net/project/geographiclib/"

const defaultQuery = "use_mirror=autoselect"

// ModelURL returns the URL of the archive of model. If baseURL is empty then
// DefaultBaseURL is used with a query that selects a mirror automatically.
// Any query or fragment of a custom baseURL is dropped.
func ModelURL(model Model, baseURL string, archiveType ArchiveType) (string, error) {
	query := ""
	if baseURL == "" {
		baseURL = DefaultBaseURL
		query = defaultQuery
	}
	if archiveType == "" {
		archiveType = ArchiveTypeTarBz2
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + string(model.Type) + "-distrib/" + model.Name + string(archiveType)
	u.RawPath = ""
	u.RawQuery = query
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// DefaultDataPath returns the value of the GEOGRAPHICLIB_DATA environment
// variable if it is set, otherwise the platform's default GeographicLib data
// directory.
func DefaultDataPath() string {
	if dataPath, ok := os.LookupEnv("GEOGRAPHICLIB_DATA"); ok && dataPath != "" {
		return dataPath
	}
	if runtime.GOOS == "windows" {
		return "C:/ProgramData/GeographicLib"
	}
	return "/usr/local/share/GeographicLib"
}
