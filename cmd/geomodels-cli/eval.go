package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/twpayne/go-geomodels"
	"github.com/twpayne/go-geomodels/array"
	"github.com/twpayne/go-geomodels/geocentric"
)

const mGal = 1e-5

func runEval(_ context.Context, e *env, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "--help" {
		fmt.Fprintf(e.stderr, "usage: %s eval geoid|gravity|magnetic [flags] LAT LON [H]\n", prog)
		if len(args) == 0 {
			return errors.New("eval: no model kind specified")
		}
		return nil
	}
	kind := args[0]
	if kind != "geoid" && kind != "gravity" && kind != "magnetic" {
		return fmt.Errorf("eval: %s: unknown model kind", kind)
	}

	flagSet := newFlagSet(e, "eval "+kind, "LAT LON [H]")
	name := flagSet.String("n", "", "model name (default: the GeographicLib default)")
	var dataDir string
	flagSet.StringVar(&dataDir, "d", "", "data directory")
	flagSet.StringVar(&dataDir, "datadir", "", "data directory")
	year := flagSet.Float64("t", fractionalYear(time.Now()), "time in fractional years (magnetic only)")
	potential := flagSet.Bool("potential", false, "also evaluate potentials at the geocentric position (gravity only)")
	if err := flagSet.Parse(args[1:]); err != nil {
		return err
	}
	if flagSet.NArg() != 2 && flagSet.NArg() != 3 {
		flagSet.Usage()
		return fmt.Errorf("eval: expected LAT LON [H], got %d arguments", flagSet.NArg())
	}
	coords := make([]float64, 3)
	for i, arg := range flagSet.Args() {
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("eval: %s: %w", arg, err)
		}
		coords[i] = value
	}
	lat, lon, h := array.Scalar(coords[0]), array.Scalar(coords[1]), array.Scalar(coords[2])
	hasHeight := flagSet.NArg() == 3

	options := []geomodels.ModelSetOption{
		geomodels.WithCacheSize(1),
	}
	if dataDir == "" {
		dataDir = e.config.DataDir
	}
	if dataDir != "" {
		options = append(options, geomodels.WithDataPath(dataDir))
	}
	modelSet, err := geomodels.NewModelSet(options...)
	if err != nil {
		return err
	}
	defer modelSet.Close()

	switch kind {
	case "geoid":
		return evalGeoid(e.stdout, modelSet, *name, lat, lon, h, hasHeight)
	case "gravity":
		return evalGravity(e.stdout, modelSet, *name, lat, lon, h, *potential)
	default:
		return evalMagnetic(e.stdout, modelSet, *name, array.Scalar(*year), lat, lon, h)
	}
}

func printValue(w io.Writer, label string, value array.Array, unit string) {
	fmt.Fprintf(w, "%-24s%.10g %s\n", label+":", value.Item(), unit)
}

func evalGeoid(w io.Writer, modelSet *geomodels.ModelSet, name string, lat, lon, h array.Array, hasHeight bool) error {
	geoid, err := modelSet.Geoid(name)
	if err != nil {
		return err
	}
	height, err := geoid.Height(lat, lon)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-24s%s\n", "geoid:", geoid.Info().Name)
	printValue(w, "geoid height", height, "m")
	if hasHeight {
		orthometricHeight, err := geoid.ConvertHeight(lat, lon, h, geomodels.EllipsoidToGeoid)
		if err != nil {
			return err
		}
		printValue(w, "height above geoid", orthometricHeight, "m")
	}
	return nil
}

func evalGravity(w io.Writer, modelSet *geomodels.ModelSet, name string, lat, lon, h array.Array, potential bool) error {
	gravityModel, err := modelSet.GravityModel(name)
	if err != nil {
		return err
	}
	gravity, err := gravityModel.Gravity(lat, lon, h)
	if err != nil {
		return err
	}
	disturbance, err := gravityModel.Disturbance(lat, lon, h)
	if err != nil {
		return err
	}
	geoidHeight, err := gravityModel.GeoidHeight(lat, lon)
	if err != nil {
		return err
	}
	anomaly, err := gravityModel.SphericalAnomaly(lat, lon, h)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-24s%s\n", "gravity model:", gravityModel.Info().Name)
	printValue(w, "W", gravity.Value, "m^2/s^2")
	printValue(w, "gx", gravity.X, "m/s^2")
	printValue(w, "gy", gravity.Y, "m/s^2")
	printValue(w, "gz", gravity.Z, "m/s^2")
	printValue(w, "T", disturbance.Value, "m^2/s^2")
	printValue(w, "deltax", array.Scalar(disturbance.X.Item()/mGal), "mGal")
	printValue(w, "deltay", array.Scalar(disturbance.Y.Item()/mGal), "mGal")
	printValue(w, "deltaz", array.Scalar(disturbance.Z.Item()/mGal), "mGal")
	printValue(w, "geoid height", geoidHeight, "m")
	printValue(w, "gravity anomaly", array.Scalar(anomaly.Dg01.Item()/mGal), "mGal")
	printValue(w, "xi", array.Scalar(anomaly.Xi.Item()*3600), "arcsec")
	printValue(w, "eta", array.Scalar(anomaly.Eta.Item()*3600), "arcsec")

	if !potential {
		return nil
	}
	converter, err := geocentric.NewConverter()
	if err != nil {
		return err
	}
	defer converter.Close()
	x, y, z, err := converter.Forward(lat, lon, h)
	if err != nil {
		return err
	}
	printValue(w, "X", x, "m")
	printValue(w, "Y", y, "m")
	printValue(w, "Z", z, "m")
	v, err := gravityModel.V(x, y, z)
	if err != nil {
		return err
	}
	u, err := gravityModel.U(x, y, z)
	if err != nil {
		return err
	}
	centrifugal, err := gravityModel.Phi(x, y)
	if err != nil {
		return err
	}
	printValue(w, "V", v.Value, "m^2/s^2")
	printValue(w, "U", u.Value, "m^2/s^2")
	printValue(w, "Phi", centrifugal.Phi, "m^2/s^2")
	return nil
}

func evalMagnetic(w io.Writer, modelSet *geomodels.ModelSet, name string, t, lat, lon, h array.Array) error {
	magneticFieldModel, err := modelSet.MagneticFieldModel(name)
	if err != nil {
		return err
	}
	field, err := magneticFieldModel.FieldWithRate(t, lat, lon, h)
	if err != nil {
		return err
	}
	elements, err := geomodels.FieldComponentsWithRate(field.BX, field.BY, field.BZ, field.BXT, field.BYT, field.BZT)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-24s%s\n", "magnetic model:", magneticFieldModel.Info().Name)
	printValue(w, "time", t, "years")
	printValue(w, "declination", elements.D, "deg")
	printValue(w, "inclination", elements.I, "deg")
	printValue(w, "horizontal field", elements.H, "nT")
	printValue(w, "total field", elements.F, "nT")
	printValue(w, "bx", field.BX, "nT")
	printValue(w, "by", field.BY, "nT")
	printValue(w, "bz", field.BZ, "nT")
	printValue(w, "declination rate", elements.DT, "deg/yr")
	printValue(w, "inclination rate", elements.IT, "deg/yr")
	printValue(w, "horizontal field rate", elements.HT, "nT/yr")
	printValue(w, "total field rate", elements.FT, "nT/yr")
	return nil
}

// fractionalYear returns t as a fractional year, for example 2025.5 for the
// middle of 2025.
func fractionalYear(t time.Time) float64 {
	t = t.UTC()
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return float64(t.Year()) + float64(t.Sub(start))/float64(end.Sub(start))
}
