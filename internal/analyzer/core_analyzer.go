package analyzer

import (
	"fmt"
	"image"
)

// coreAnalyzer implements Analyzer and orchestrates the pipeline stages
type coreAnalyzer struct {
	preprocessor Preprocessor
	contours     ContourExtractor
	simplifier   *shapeSimplifier
	curvature    *curvatureEstimator
	posture      *postureAnalyzer
}

// NewImageAnalyzer creates an analyzer with the given pipeline parameters
func NewImageAnalyzer(opts AnalysisOptions) (Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis options: %w", err)
	}

	return &coreAnalyzer{
		preprocessor: newPreprocessor(opts),
		contours:     newContourExtractor(),
		simplifier:   newShapeSimplifier(opts),
		curvature:    newCurvatureEstimator(opts),
		posture:      newPostureAnalyzer(opts),
	}, nil
}

// AnalyzeBend scores spinal curvature from a forward-bend photograph
func (ca *coreAnalyzer) AnalyzeBend(img image.Image) (result BendResult, err error) {
	defer recoverFailure(&err)

	mask, err := ca.mask(img)
	if err != nil {
		return BendResult{}, err
	}
	return ca.bendFromMask(mask)
}

// AnalyzePosture measures shoulder, hip and spine asymmetry from a standing photograph
func (ca *coreAnalyzer) AnalyzePosture(img image.Image) (result PostureResult, err error) {
	defer recoverFailure(&err)

	mask, err := ca.mask(img)
	if err != nil {
		return PostureResult{}, err
	}
	return ca.postureFromMask(mask)
}

// AnalyzeBendRaster is AnalyzeBend for a raw pixel buffer
func (ca *coreAnalyzer) AnalyzeBendRaster(r Raster) (result BendResult, err error) {
	defer recoverFailure(&err)

	img, err := r.Image()
	if err != nil {
		return BendResult{}, err
	}
	return ca.AnalyzeBend(img)
}

// AnalyzePostureRaster is AnalyzePosture for a raw pixel buffer
func (ca *coreAnalyzer) AnalyzePostureRaster(r Raster) (result PostureResult, err error) {
	defer recoverFailure(&err)

	img, err := r.Image()
	if err != nil {
		return PostureResult{}, err
	}
	return ca.AnalyzePosture(img)
}

func (ca *coreAnalyzer) mask(img image.Image) (*image.Gray, error) {
	gray, err := Normalize(img)
	if err != nil {
		return nil, err
	}
	return ca.preprocessor.Preprocess(gray), nil
}

func (ca *coreAnalyzer) dominantContour(mask *image.Gray) (Contour, error) {
	dominant, ok := largest(ca.contours.FindExternal(mask))
	if !ok {
		return nil, ErrNoContourFound
	}
	return dominant, nil
}

func (ca *coreAnalyzer) bendFromMask(mask *image.Gray) (BendResult, error) {
	contour, err := ca.dominantContour(mask)
	if err != nil {
		return BendResult{}, err
	}

	polygon := ca.simplifier.Simplify(contour)
	return BendResult{
		Curvature:   ca.curvature.Estimate(polygon),
		Polygon:     polygon,
		Bounds:      contour.Bounds(),
		ContourArea: contour.Area(),
	}, nil
}

func (ca *coreAnalyzer) postureFromMask(mask *image.Gray) (PostureResult, error) {
	contour, err := ca.dominantContour(mask)
	if err != nil {
		return PostureResult{}, err
	}

	box := contour.Bounds()
	return PostureResult{
		Metrics:     ca.posture.Measure(mask, box),
		Bounds:      box,
		ContourArea: contour.Area(),
	}, nil
}

// recoverFailure converts a panic inside a pipeline stage into ErrAnalysisFailed
func recoverFailure(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
	}
}
