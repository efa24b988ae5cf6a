package exercise

import (
	"fmt"
	"time"
)

// Tier is a difficulty level of the corrective exercise program
type Tier string

const (
	TierBasic        Tier = "basic"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
)

// Tier boundaries on the curvature score. Lower bounds are inclusive.
const (
	intermediateFrom = 0.1
	advancedFrom     = 0.2
)

// TierForScore maps a screening score to a program difficulty
func TierForScore(score float64) Tier {
	switch {
	case score < intermediateFrom:
		return TierBasic
	case score < advancedFrom:
		return TierIntermediate
	default:
		return TierAdvanced
	}
}

// ParseTier validates a tier name
func ParseTier(name string) (Tier, error) {
	switch t := Tier(name); t {
	case TierBasic, TierIntermediate, TierAdvanced:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tier %q", name)
	}
}

// Exercise is one entry of a program
type Exercise struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"-"`
	Minutes     int           `json:"duration_minutes"`
	Image       string        `json:"image,omitempty"`
}

// Program is the list of exercises recommended for one tier
type Program struct {
	Tier      Tier       `json:"tier"`
	Exercises []Exercise `json:"exercises"`
}

// TotalDuration is the sum of every exercise's duration
func (p Program) TotalDuration() time.Duration {
	var total time.Duration
	for _, e := range p.Exercises {
		total += e.Duration
	}
	return total
}

// Catalog holds the exercise programs keyed by tier
type Catalog struct {
	programs map[Tier][]Exercise
}

func exercise(name, description string, minutes int, image string) Exercise {
	return Exercise{
		Name:        name,
		Description: description,
		Duration:    time.Duration(minutes) * time.Minute,
		Minutes:     minutes,
		Image:       image,
	}
}

// NewCatalog returns the built-in catalog
func NewCatalog() *Catalog {
	return &Catalog{programs: map[Tier][]Exercise{
		TierBasic: {
			exercise("Wall stretch", "Stand with your back against a wall and slowly raise and lower both arms along it.", 5, "wall_stretch.jpg"),
			exercise("Cat pose", "On hands and knees, alternately round and arch the back.", 3, "cat_pose.jpg"),
		},
		TierIntermediate: {
			exercise("Cobra pose", "Lying face down, lift the upper body to lengthen the spine.", 5, "cobra_pose.jpg"),
			exercise("Side plank", "Rest on one elbow and hold the body in a straight line.", 3, "side_plank.jpg"),
		},
		TierAdvanced: {
			exercise("Bridge", "Lying on your back, lift the hips to stretch the spine.", 5, "bridge.jpg"),
			exercise("Superman pose", "Lying face down, raise both arms and both legs.", 3, "superman.jpg"),
		},
	}}
}

// ByTier returns the program of a tier. Unknown tiers yield an empty program.
func (c *Catalog) ByTier(tier Tier) Program {
	exercises := c.programs[tier]
	return Program{Tier: tier, Exercises: append([]Exercise(nil), exercises...)}
}

// ProgramFor returns the program matching a screening score
func (c *Catalog) ProgramFor(score float64) Program {
	return c.ByTier(TierForScore(score))
}
