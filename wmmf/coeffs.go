package wmmf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// maxDegree bounds the degree of coefficient sets read from files.
const maxDegree = 1 << 12

// idLength is the length of the ID at the start of a coefficients file.
const idLength = 8

// A SphCoeffSet is a set of spherical harmonic coefficients. C and S are
// (N+1)x(M+1) matrices indexed by degree and order.
type SphCoeffSet struct {
	C *mat.Dense
	S *mat.Dense
}

// NewSphCoeffSet returns a new zero SphCoeffSet with maximum degree n and
// maximum order m.
func NewSphCoeffSet(n, m int) SphCoeffSet {
	return SphCoeffSet{
		C: mat.NewDense(n+1, m+1, nil),
		S: mat.NewDense(n+1, m+1, nil),
	}
}

// Size returns the maximum degree and order of s.
func (s SphCoeffSet) Size() (n, m int) {
	rows, cols := s.C.Dims()
	return rows - 1, cols - 1
}

// effectiveSize returns the largest degree and order with a non-zero
// coefficient.
func (s SphCoeffSet) effectiveSize() (n, m int) {
	rows, cols := s.C.Dims()
	for i := range rows {
		for j := range cols {
			if s.C.At(i, j) != 0 || s.S.At(i, j) != 0 {
				n = max(n, i)
				m = max(m, j)
			}
		}
	}
	return n, min(m, n)
}

// readSphCoeffSet reads a coefficient set from r.
func readSphCoeffSet(r io.Reader) (SphCoeffSet, error) {
	var size [2]int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return SphCoeffSet{}, err
	}
	n, m := int(size[0]), int(size[1])
	if n < 0 || m < 0 || m > n || n > maxDegree {
		return SphCoeffSet{}, fmt.Errorf("%w: invalid coefficient set size n=%d, m=%d", ErrInvalidFormat, n, m)
	}

	s := NewSphCoeffSet(n, m)
	c := make([]float64, (m+1)*(2*n-m+2)/2)
	if err := binary.Read(r, binary.LittleEndian, c); err != nil {
		return SphCoeffSet{}, err
	}
	k := 0
	for j := 0; j <= m; j++ {
		for i := j; i <= n; i++ {
			s.C.Set(i, j, c[k])
			k++
		}
	}

	sValues := make([]float64, m*(2*n-m+1)/2)
	if err := binary.Read(r, binary.LittleEndian, sValues); err != nil {
		return SphCoeffSet{}, err
	}
	k = 0
	for j := 1; j <= m; j++ {
		for i := j; i <= n; i++ {
			s.S.Set(i, j, sValues[k])
			k++
		}
	}
	return s, nil
}

// writeTo writes s to w, truncated to its effective size.
func (s SphCoeffSet) writeTo(w io.Writer) error {
	if s.C == nil || s.S == nil {
		return errors.New("missing coefficients")
	}
	cRows, cCols := s.C.Dims()
	sRows, sCols := s.S.Dims()
	if cRows != sRows || cCols != sCols {
		return fmt.Errorf("C and S coefficients have different shapes (C: %dx%d, S: %dx%d)", cRows, cCols, sRows, sCols)
	}
	if cCols > cRows {
		return fmt.Errorf("invalid shape of coefficients: n=%d, m=%d, expected m <= n", cRows-1, cCols-1)
	}

	n, m := s.effectiveSize()
	if err := binary.Write(w, binary.LittleEndian, [2]int32{int32(n), int32(m)}); err != nil {
		return err
	}
	c := make([]float64, 0, (m+1)*(2*n-m+2)/2)
	for j := 0; j <= m; j++ {
		for i := j; i <= n; i++ {
			c = append(c, s.C.At(i, j))
		}
	}
	if err := binary.Write(w, binary.LittleEndian, c); err != nil {
		return err
	}
	sValues := make([]float64, 0, m*(2*n-m+1)/2)
	for j := 1; j <= m; j++ {
		for i := j; i <= n; i++ {
			sValues = append(sValues, s.S.At(i, j))
		}
	}
	return binary.Write(w, binary.LittleEndian, sValues)
}

// Data is a magnetic field model: its metadata, a coefficient set for each
// epoch, and the rate of change of the coefficients after the last epoch.
type Data struct {
	MetaData *MetaData
	Coeffs   []SphCoeffSet
	Rate     SphCoeffSet
}

// NewData returns a new Data, checking that coeffs has a coefficient set for
// each of metaData's years.
func NewData(metaData *MetaData, coeffs []SphCoeffSet, rate SphCoeffSet) (*Data, error) {
	d := &Data{
		MetaData: metaData,
		Coeffs:   coeffs,
		Rate:     rate,
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return d, nil
}

// Load loads the model from the metadata file name and the coefficients file
// name.cof.
func Load(name string) (*Data, error) {
	metaData, err := LoadMetaData(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(name + ".cof")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	r := bufio.NewReader(file)

	id := make([]byte, idLength)
	if _, err := io.ReadFull(r, id); err != nil {
		return nil, fmt.Errorf("%s.cof: %w", name, err)
	}
	if string(id) != metaData.ID {
		return nil, fmt.Errorf("%s.cof: data ID (%s) does not match metadata ID (%s)", name, id, metaData.ID)
	}

	if metaData.NumModels < 1 {
		return nil, fmt.Errorf("%s: %w: invalid number of models %d", name, ErrInvalidFormat, metaData.NumModels)
	}
	coeffs := make([]SphCoeffSet, 0, metaData.NumModels)
	for range metaData.NumModels {
		coeffSet, err := readSphCoeffSet(r)
		if err != nil {
			return nil, fmt.Errorf("%s.cof: %w", name, err)
		}
		coeffs = append(coeffs, coeffSet)
	}
	rate, err := readSphCoeffSet(r)
	if err != nil {
		return nil, fmt.Errorf("%s.cof: rate: %w", name, err)
	}

	return NewData(metaData, coeffs, rate)
}

func (d *Data) check() error {
	if d.MetaData == nil {
		return errors.New("missing metadata")
	}
	if d.Rate.C == nil || d.Rate.S == nil {
		return errors.New("rate coefficients not found")
	}
	if len(d.Coeffs) != d.MetaData.NumModels {
		return fmt.Errorf("coefficient years do not match metadata: got %d coefficient sets, expected %d", len(d.Coeffs), d.MetaData.NumModels)
	}
	return nil
}

// Save writes the model to outpath and outpath.cof. If outpath is a directory
// then the model is written to name.wmm in it, where name is the model's
// name. Existing files are only overwritten if force is true. It returns the
// path of the metadata file.
func (d *Data) Save(outpath string, force bool) (string, error) {
	if err := d.check(); err != nil {
		return "", err
	}
	id := d.MetaData.ModelID()
	if len(id) != idLength {
		return "", fmt.Errorf("invalid ID %q: expected %d characters", id, idLength)
	}

	name := outpath
	if fileInfo, err := os.Stat(outpath); err == nil && fileInfo.IsDir() {
		name = filepath.Join(outpath, d.MetaData.Name+".wmm")
	}
	if !force {
		for _, path := range []string{name, name + ".cof"} {
			if _, err := os.Lstat(path); err == nil {
				return "", fmt.Errorf("%s: %w", path, fs.ErrExist)
			}
		}
	}

	if err := d.MetaData.Save(name); err != nil {
		return "", err
	}

	file, err := os.Create(name + ".cof")
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(file)
	if err := d.writeCoeffs(w, id); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func (d *Data) writeCoeffs(w io.Writer, id string) error {
	if _, err := io.WriteString(w, id); err != nil {
		return err
	}
	for _, coeffSet := range d.Coeffs {
		if err := coeffSet.writeTo(w); err != nil {
			return err
		}
	}
	return d.Rate.writeTo(w)
}
