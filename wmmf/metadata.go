// Package wmmf reads and writes magnetic field models in the World Magnetic
// Model Format used by GeographicLib, and imports IGRF coefficient tables.
//
// See https://geographiclib.sourceforge.io/C++/doc/magnetic.html#magneticformat.
package wmmf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidFormat is returned when a file is not in a supported format.
var ErrInvalidFormat = errors.New("invalid format")

const igrfDescription = "International Geomagnetic Reference Field"

// MetaData is the metadata of a magnetic field model. The zero value is not
// useful, use [NewMetaData].
type MetaData struct {
	FormatVersion  int
	Name           string
	Description    string
	URL            string
	Publisher      string
	ReleaseDate    string
	DataCutOff     string
	ConversionDate string
	DataVersion    int
	Radius         float64
	NumModels      int
	Epoch          float64
	DeltaEpoch     float64
	MinTime        float64
	MaxTime        float64
	MinHeight      float64
	MaxHeight      float64
	NumConstants   int
	Normalization  int
	ID             string
	Type           string
	ByteOrder      string
}

// NewMetaData returns metadata with the defaults for an IGRF model.
func NewMetaData() *MetaData {
	return &MetaData{
		FormatVersion:  1,
		Name:           "N/A",
		Description:    igrfDescription,
		URL:            "http://ngdc.noaa.gov/IAGA/vmod/igrf.html",
		Publisher:      "International Association of Geomagnetism and Aeronomy",
		ReleaseDate:    "N/A",
		DataCutOff:     "N/A",
		ConversionDate: "N/A",
		DataVersion:    1,
		Radius:         6371200,
		Epoch:          1900,
		DeltaEpoch:     5,
		MinHeight:      -1000,
		MaxHeight:      600000,
		Normalization:  1,
		ID:             "N/A",
		Type:           "linear",
		ByteOrder:      "little",
	}
}

// LoadMetaData loads metadata from the file name.
func LoadMetaData(name string) (*MetaData, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	m, err := ParseMetaData(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// ParseMetaData parses metadata from r. Unknown fields are logged and
// ignored.
func ParseMetaData(r io.Reader) (*MetaData, error) {
	m := NewMetaData()
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFormat)
	}
	switch format := strings.TrimRight(scanner.Text(), " \t\r"); format {
	case "WMMF-1":
		m.FormatVersion = 1
	case "WMMF-2":
		m.FormatVersion = 2
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	lineNumber := 1
	for scanner.Scan() {
		lineNumber++
		line, _, _ := strings.Cut(scanner.Text(), "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.Fields(line)[0]
		value := strings.TrimSpace(line[len(key):])
		if err := m.set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MetaData) set(key, value string) error {
	stringFields := map[string]*string{
		"Name":           &m.Name,
		"Description":    &m.Description,
		"URL":            &m.URL,
		"Publisher":      &m.Publisher,
		"ReleaseDate":    &m.ReleaseDate,
		"DataCutOff":     &m.DataCutOff,
		"ConversionDate": &m.ConversionDate,
		"ID":             &m.ID,
		"Type":           &m.Type,
		"ByteOrder":      &m.ByteOrder,
	}
	intFields := map[string]*int{
		"DataVersion":   &m.DataVersion,
		"NumModels":     &m.NumModels,
		"NumConstants":  &m.NumConstants,
		"Normalization": &m.Normalization,
	}
	floatFields := map[string]*float64{
		"Radius":     &m.Radius,
		"Epoch":      &m.Epoch,
		"DeltaEpoch": &m.DeltaEpoch,
		"MinTime":    &m.MinTime,
		"MaxTime":    &m.MaxTime,
		"MinHeight":  &m.MinHeight,
		"MaxHeight":  &m.MaxHeight,
	}

	if field, ok := stringFields[key]; ok {
		*field = value
		return nil
	}
	if field, ok := intFields[key]; ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if i < 0 && key != "Normalization" {
			return fmt.Errorf("%w: %s: negative value %d", ErrInvalidFormat, key, i)
		}
		*field = i
		return nil
	}
	if field, ok := floatFields[key]; ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field = f
		return nil
	}
	Logger().Warn("unexpected field", zap.String("key", key), zap.String("value", value))
	return nil
}

// Years returns the epochs of the models.
func (m *MetaData) Years() []float64 {
	years := make([]float64, 0, m.NumModels)
	for i := range m.NumModels {
		years = append(years, m.Epoch+float64(i)*m.DeltaEpoch)
	}
	return years
}

// ModelID returns the model's ID. If the ID is not set and the model is an
// IGRF model then an ID is derived from its name.
func (m *MetaData) ModelID() string {
	if m.ID != "" && m.ID != "N/A" {
		return m.ID
	}
	if strings.HasPrefix(m.Name, "igrf") && len(m.Name) == len("igrfNN") {
		return strings.ToUpper(m.Name) + "-A"
	}
	return "N/A"
}

// generation returns the IGRF generation of the model, for example "13th
// Generation" for igrf13.
func (m *MetaData) generation() string {
	if len(m.Name) < 2 || m.Name == "N/A" {
		return ""
	}
	n, err := strconv.Atoi(m.Name[len(m.Name)-2:])
	if err != nil {
		return ""
	}
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix + " Generation"
}

// String returns m in World Magnetic Model Format.
func (m *MetaData) String() string {
	description := m.Description
	if description == igrfDescription {
		if generation := m.generation(); generation != "" {
			description += " " + generation
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "WMMF-%d\n", m.FormatVersion)
	fmt.Fprintf(&sb, "# A World Magnetic Model (Format %d) file.  For documentation on the\n", m.FormatVersion)
	sb.WriteString("# format of this file see\n")
	sb.WriteString("# http://geographiclib.sf.net/html/magnetic.html#magneticformat\n")
	fields := [][2]string{
		{"Name", m.Name},
		{"Description", description},
		{"URL", m.URL},
		{"Publisher", m.Publisher},
		{"ReleaseDate", m.ReleaseDate},
		{"DataCutOff", m.DataCutOff},
		{"ConversionDate", m.ConversionDate},
		{"DataVersion", strconv.Itoa(m.DataVersion)},
		{"Radius", formatFloat(m.Radius)},
		{"NumModels", strconv.Itoa(m.NumModels)},
	}
	if m.FormatVersion == 2 {
		fields = append(fields, [2]string{"NumConstants", strconv.Itoa(m.NumConstants)})
	}
	fields = append(fields, [][2]string{
		{"Epoch", formatFloat(m.Epoch)},
		{"DeltaEpoch", formatFloat(m.DeltaEpoch)},
		{"MinTime", formatFloat(m.MinTime)},
		{"MaxTime", formatFloat(m.MaxTime)},
		{"MinHeight", formatFloat(m.MinHeight)},
		{"MaxHeight", formatFloat(m.MaxHeight)},
	}...)
	for _, field := range fields {
		fmt.Fprintf(&sb, "%-16s%s\n", field[0], field[1])
	}
	sb.WriteString("\n")
	sb.WriteString("# The coefficients are stored in a file obtained by appending \".cof\" to\n")
	fmt.Fprintf(&sb, "# the name of this file.  The coefficients were obtained from %s.COF\n", strings.ToUpper(m.Name))
	sb.WriteString("# in the geomag70 distribution.\n")
	fmt.Fprintf(&sb, "%-16s%s\n", "ID", m.ModelID())
	return sb.String()
}

// Save writes m to the file name.
func (m *MetaData) Save(name string) error {
	return os.WriteFile(name, []byte(m.String()), 0o666)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
