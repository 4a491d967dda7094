package wmmf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var igrfFilenameRx = regexp.MustCompile(`\Aigrf[0-9][0-9]coeffs\.txt\z`)

type importOptions struct {
	httpClient *http.Client
	now        func() time.Time
}

// An ImportOption sets an option on ImportIGRFText.
type ImportOption func(*importOptions)

// WithHTTPClient sets the HTTP client used to fetch remote files.
func WithHTTPClient(httpClient *http.Client) ImportOption {
	return func(o *importOptions) {
		o.httpClient = httpClient
	}
}

// WithNow sets the function used to determine the conversion date.
func WithNow(now func() time.Time) ImportOption {
	return func(o *importOptions) {
		o.now = now
	}
}

// ImportIGRFText imports a model from a coefficients file in IGRF text
// format, for example igrf14coeffs.txt. rawPath may be a local path, a file
// URL, or an http or https URL.
//
// See https://www.ncei.noaa.gov/products/international-geomagnetic-reference-field.
func ImportIGRFText(ctx context.Context, rawPath string, options ...ImportOption) (*Data, error) {
	o := &importOptions{
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, option := range options {
		option(o)
	}

	var r io.ReadCloser
	var filename string
	switch u, err := url.Parse(rawPath); {
	case err != nil || u.Scheme == "" || len(u.Scheme) == 1:
		// A plain path, possibly with a Windows drive letter.
		filename = filepath.Base(rawPath)
		if err := checkIGRFFilename(filename); err != nil {
			return nil, err
		}
		file, err := os.Open(rawPath)
		if err != nil {
			return nil, err
		}
		r = file
	case u.Scheme == "file":
		filename = path.Base(u.Path)
		if err := checkIGRFFilename(filename); err != nil {
			return nil, err
		}
		file, err := os.Open(filepath.FromSlash(u.Path))
		if err != nil {
			return nil, err
		}
		r = file
	case u.Scheme == "http" || u.Scheme == "https":
		filename = path.Base(u.Path)
		if err := checkIGRFFilename(filename); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawPath, nil)
		if err != nil {
			return nil, err
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%s: %s", rawPath, resp.Status)
		}
		r = resp.Body
	default:
		return nil, fmt.Errorf("%s: unsupported scheme %q", rawPath, u.Scheme)
	}
	defer r.Close()

	Logger().Debug("importing IGRF coefficients", zap.String("path", rawPath))
	data, err := parseIGRFText(r, strings.TrimSuffix(filename, "coeffs.txt"), o.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return data, nil
}

func checkIGRFFilename(filename string) error {
	if !igrfFilenameRx.MatchString(filename) {
		return fmt.Errorf("invalid file name %q: expected igrfNNcoeffs.txt", filename)
	}
	return nil
}

type igrfCoeff struct {
	gh     byte
	n, m   int
	values []float64
}

func parseIGRFText(r io.Reader, name string, now time.Time) (*Data, error) {
	scanner := bufio.NewScanner(r)

	var metaData *MetaData
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.HasPrefix(line, "g/h") {
			var err error
			if metaData, err = metaDataFromIGRFHeader(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if metaData == nil {
		return nil, fmt.Errorf("%w: header line not found", ErrInvalidFormat)
	}
	metaData.Name = name
	metaData.ConversionDate = now.Format(time.DateOnly)

	// Each row has the epoch values followed by the secular variation.
	numValues := metaData.NumModels + 1
	var coeffs []igrfCoeff
	nMax, mMax := 0, 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 3+numValues {
			return nil, fmt.Errorf("line %d: %w: expected %d fields, got %d", lineNumber, ErrInvalidFormat, 3+numValues, len(fields))
		}
		if fields[0] != "g" && fields[0] != "h" {
			return nil, fmt.Errorf("line %d: %w: unexpected coefficient type %q", lineNumber, ErrInvalidFormat, fields[0])
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		m, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		if n < 0 || m < 0 || m > n || n > maxDegree {
			return nil, fmt.Errorf("line %d: %w: invalid degree and order n=%d, m=%d", lineNumber, ErrInvalidFormat, n, m)
		}
		values := make([]float64, 0, numValues)
		for _, field := range fields[3:] {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			values = append(values, value)
		}
		coeffs = append(coeffs, igrfCoeff{
			gh:     fields[0][0],
			n:      n,
			m:      m,
			values: values,
		})
		nMax = max(nMax, n)
		mMax = max(mMax, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%w: no coefficients", ErrInvalidFormat)
	}

	coeffSets := make([]SphCoeffSet, numValues)
	for i := range coeffSets {
		coeffSets[i] = NewSphCoeffSet(nMax, mMax)
	}
	for _, coeff := range coeffs {
		for i, value := range coeff.values {
			switch coeff.gh {
			case 'g':
				coeffSets[i].C.Set(coeff.n, coeff.m, value)
			case 'h':
				coeffSets[i].S.Set(coeff.n, coeff.m, value)
			}
		}
	}

	return NewData(metaData, coeffSets[:metaData.NumModels], coeffSets[metaData.NumModels])
}

// metaDataFromIGRFHeader returns the metadata described by an IGRF header
// line, for example
//
//	g/h n m 1900.0 1905.0 ... 2020.0 2025.0 2025-30
func metaDataFromIGRFHeader(header string) (*MetaData, error) {
	fields := strings.Fields(header)
	if len(fields) < 4 || fields[0] != "g/h" || fields[1] != "n" || fields[2] != "m" || !strings.Contains(fields[len(fields)-1], "-") {
		return nil, fmt.Errorf("%w: invalid header line %q", ErrInvalidFormat, header)
	}

	years := make([]float64, 0, len(fields)-4)
	for _, field := range fields[3 : len(fields)-1] {
		year, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid year %q", ErrInvalidFormat, field)
		}
		years = append(years, year)
	}
	if len(years) < 2 {
		return nil, fmt.Errorf("%w: at least two epochs are required", ErrInvalidFormat)
	}
	deltaEpoch := years[1] - years[0]
	if deltaEpoch <= 0 {
		return nil, fmt.Errorf("%w: epochs are not increasing", ErrInvalidFormat)
	}
	for i := 2; i < len(years); i++ {
		if years[i]-years[i-1] != deltaEpoch {
			return nil, fmt.Errorf("%w: non-uniform time sampling", ErrInvalidFormat)
		}
	}

	metaData := NewMetaData()
	metaData.NumModels = len(years)
	metaData.Epoch = years[0]
	metaData.DeltaEpoch = deltaEpoch
	metaData.MinTime = years[0]
	metaData.MaxTime = years[len(years)-1] + deltaEpoch
	return metaData, nil
}
