package strategy

import (
	"fmt"
	"image"
	"sort"

	"go-spine-inspector/internal/analyzer"
	"go-spine-inspector/pkg/models"
)

// Outcome is what a screening strategy reports for one photograph
type Outcome struct {
	TestType    models.TestType
	Score       float64
	Bounds      image.Rectangle
	ContourArea float64
	Bend        *analyzer.BendResult
	Posture     *analyzer.PostureResult
}

// ScreeningStrategy scores one kind of screening photograph
type ScreeningStrategy interface {
	Screen(img image.Image) (Outcome, error)
	TestType() models.TestType
}

// BendStrategy scores an Adams forward-bend photograph by back curvature
type BendStrategy struct {
	analyzer analyzer.Analyzer
}

// NewBendStrategy creates a new forward-bend strategy
func NewBendStrategy(a analyzer.Analyzer) ScreeningStrategy {
	return &BendStrategy{analyzer: a}
}

// Screen runs the bend pipeline; the score is the curvature score
func (s *BendStrategy) Screen(img image.Image) (Outcome, error) {
	result, err := s.analyzer.AnalyzeBend(img)
	if err != nil {
		return Outcome{TestType: models.TestAdams}, err
	}
	return Outcome{
		TestType:    models.TestAdams,
		Score:       result.Score,
		Bounds:      result.Bounds,
		ContourArea: result.ContourArea,
		Bend:        &result,
	}, nil
}

// TestType returns the handled test type
func (s *BendStrategy) TestType() models.TestType {
	return models.TestAdams
}

// PostureStrategy scores a standing photograph by left/right asymmetry
type PostureStrategy struct {
	analyzer analyzer.Analyzer
}

// NewPostureStrategy creates a new posture strategy
func NewPostureStrategy(a analyzer.Analyzer) ScreeningStrategy {
	return &PostureStrategy{analyzer: a}
}

// Screen runs the posture pipeline; the score is the mean of the three metrics
func (s *PostureStrategy) Screen(img image.Image) (Outcome, error) {
	result, err := s.analyzer.AnalyzePosture(img)
	if err != nil {
		return Outcome{TestType: models.TestPosture}, err
	}
	return Outcome{
		TestType:    models.TestPosture,
		Score:       result.Score(),
		Bounds:      result.Bounds,
		ContourArea: result.ContourArea,
		Posture:     &result,
	}, nil
}

// TestType returns the handled test type
func (s *PostureStrategy) TestType() models.TestType {
	return models.TestPosture
}

// Registry picks the strategy for a test type
type Registry struct {
	strategies map[models.TestType]ScreeningStrategy
}

// NewRegistry registers the given strategies under their test types
func NewRegistry(strategies ...ScreeningStrategy) *Registry {
	r := &Registry{strategies: make(map[models.TestType]ScreeningStrategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.TestType()] = s
	}
	return r
}

// NewDefaultRegistry registers the bend and posture strategies over one analyzer
func NewDefaultRegistry(a analyzer.Analyzer) *Registry {
	return NewRegistry(NewBendStrategy(a), NewPostureStrategy(a))
}

// Get returns the strategy for testType
func (r *Registry) Get(testType models.TestType) (ScreeningStrategy, error) {
	s, ok := r.strategies[testType]
	if !ok {
		return nil, fmt.Errorf("no strategy for test type %q", testType)
	}
	return s, nil
}

// TestTypes lists the registered test types, sorted
func (r *Registry) TestTypes() []models.TestType {
	out := make([]models.TestType, 0, len(r.strategies))
	for t := range r.strategies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
