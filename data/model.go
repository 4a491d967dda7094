// Package data downloads and installs the data files used by GeographicLib
// geoid, gravity, and magnetic field models.
package data

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownModel is returned when a model, type, or group name is not
// recognized.
var ErrUnknownModel = errors.New("unknown model")

// A ModelType is a type of model. Its value is the name of the
// subdirectory of the data directory that contains models of that type.
type ModelType string

// Model types.
const (
	ModelTypeGeoid    ModelType = "geoids"
	ModelTypeGravity  ModelType = "gravity"
	ModelTypeMagnetic ModelType = "magnetic"
)

// ModelTypes are all model types.
var ModelTypes = []ModelType{
	ModelTypeGeoid,
	ModelTypeGravity,
	ModelTypeMagnetic,
}

// A ModelGroup is a named group of models.
type ModelGroup string

// Model groups.
const (
	ModelGroupAll         ModelGroup = "all"
	ModelGroupMinimal     ModelGroup = "minimal"
	ModelGroupRecommended ModelGroup = "recommended"
)

// ModelGroups are all model groups.
var ModelGroups = []ModelGroup{
	ModelGroupAll,
	ModelGroupMinimal,
	ModelGroupRecommended,
}

// A Model is a single model.
type Model struct {
	Type ModelType
	Name string
}

func (m Model) String() string {
	return string(m.Type) + "/" + m.Name
}

var (
	// GeoidModels are all known geoids.
	GeoidModels = newModels(ModelTypeGeoid,
		"egm84-30",
		"egm84-15",
		"egm96-15",
		"egm96-5",
		"egm2008-5",
		"egm2008-2_5",
		"egm2008-1",
	)

	// GravityModels are all known gravity models.
	GravityModels = newModels(ModelTypeGravity,
		"egm84",
		"egm96",
		"egm2008",
		"grs80",
		"wgs84",
	)

	// MagneticModels are all known magnetic field models.
	MagneticModels = newModels(ModelTypeMagnetic,
		"wmm2010",
		"wmm2015",
		"wmm2015v2",
		"wmm2020",
		"wmm2025",
		"wmmhr2025",
		"igrf11",
		"igrf12",
		"igrf13",
		"igrf14",
		"emm2010",
		"emm2015",
		"emm2017",
	)
)

// recommendedModels are installed by the recommended group in addition to
// the default models.
var recommendedModels = []Model{
	{Type: ModelTypeGeoid, Name: "egm96-5"},
	{Type: ModelTypeGravity, Name: "egm96"},
	{Type: ModelTypeMagnetic, Name: "igrf12"},
	{Type: ModelTypeMagnetic, Name: "wmm2015"},
}

// Defaults are the names of the default model of each type, which make up
// the minimal group.
type Defaults struct {
	Geoid    string `yaml:"geoid"`
	Gravity  string `yaml:"gravity"`
	Magnetic string `yaml:"magnetic"`
}

// DefaultDefaults are the default models of GeographicLib 2.5.
var DefaultDefaults = Defaults{
	Geoid:    "egm96-5",
	Gravity:  "egm96",
	Magnetic: "wmm2025",
}

func newModels(modelType ModelType, names ...string) []Model {
	models := make([]Model, 0, len(names))
	for _, name := range names {
		models = append(models, Model{
			Type: modelType,
			Name: name,
		})
	}
	return models
}

// Models returns all known models of modelType.
func Models(modelType ModelType) []Model {
	switch modelType {
	case ModelTypeGeoid:
		return slices.Clone(GeoidModels)
	case ModelTypeGravity:
		return slices.Clone(GravityModels)
	case ModelTypeMagnetic:
		return slices.Clone(MagneticModels)
	default:
		return nil
	}
}

// AllModels returns all known models.
func AllModels() []Model {
	return slices.Concat(GeoidModels, GravityModels, MagneticModels)
}

// LookupModel returns the model with the given name.
func LookupModel(name string) (Model, bool) {
	for _, model := range AllModels() {
		if model.Name == name {
			return model, true
		}
	}
	return Model{}, false
}

// Resolve returns the models selected by target, which may be the name of a
// group, a model type, or a single model. defaults are the models of the
// minimal group. The result contains no duplicates and is in a stable order.
func Resolve(target string, defaults Defaults) ([]Model, error) {
	switch ModelGroup(target) {
	case ModelGroupAll:
		return AllModels(), nil
	case ModelGroupMinimal:
		return minimalModels(defaults)
	case ModelGroupRecommended:
		models, err := minimalModels(defaults)
		if err != nil {
			return nil, err
		}
		for _, model := range recommendedModels {
			if !slices.Contains(models, model) {
				models = append(models, model)
			}
		}
		return models, nil
	}

	if models := Models(ModelType(target)); models != nil {
		return models, nil
	}

	if model, ok := LookupModel(target); ok {
		return []Model{model}, nil
	}

	return nil, fmt.Errorf("%s: %w", target, ErrUnknownModel)
}

func minimalModels(defaults Defaults) ([]Model, error) {
	models := make([]Model, 0, 3)
	for _, defaultModel := range []Model{
		{Type: ModelTypeGeoid, Name: defaults.Geoid},
		{Type: ModelTypeGravity, Name: defaults.Gravity},
		{Type: ModelTypeMagnetic, Name: defaults.Magnetic},
	} {
		if !slices.Contains(Models(defaultModel.Type), defaultModel) {
			return nil, fmt.Errorf("%s: default %w", defaultModel, ErrUnknownModel)
		}
		models = append(models, defaultModel)
	}
	return models, nil
}
