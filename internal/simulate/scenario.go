package simulate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrEmptyScenario is returned for a scenario without people.
var ErrEmptyScenario = errors.New("scenario has no people")

const randomFloatDivisor = 1_000_000

// Person is one simulated subject.
type Person struct {
	// Name is the face name posted with each recognition.
	Name string `yaml:"name"`
	// Sightings is how many recognitions to post for this person. Anything
	// past the first inside the debounce window should come back
	// suppressed.
	Sightings int `yaml:"sightings"`
	// MinConfidence and MaxConfidence bound the random confidence.
	MinConfidence float64 `yaml:"min_confidence"`
	MaxConfidence float64 `yaml:"max_confidence"`
}

// Scenario describes a simulation run.
type Scenario struct {
	People []Person `yaml:"people"`
	// Spacing is the delay between consecutive submissions per worker.
	Spacing time.Duration `yaml:"spacing"`
}

// LoadScenario reads a YAML scenario from path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.People) == 0 {
		return nil, ErrEmptyScenario
	}
	for i := range sc.People {
		p := &sc.People[i]
		if p.Sightings <= 0 {
			p.Sightings = 1
		}
		if p.MaxConfidence <= 0 || p.MaxConfidence > 1 {
			p.MaxConfidence = 0.95
		}
		if p.MinConfidence <= 0 || p.MinConfidence > p.MaxConfidence {
			p.MinConfidence = p.MaxConfidence * 0.8
		}
	}
	return &sc, nil
}

// DefaultScenario returns a small mixed workload: repeat sightings that
// exercise the debounce window and one low-confidence subject that should
// never produce attendance.
func DefaultScenario() *Scenario {
	return &Scenario{
		People: []Person{
			{Name: "sim-alpha", Sightings: 3, MinConfidence: 0.75, MaxConfidence: 0.95},
			{Name: "sim-bravo", Sightings: 2, MinConfidence: 0.70, MaxConfidence: 0.90},
			{Name: "sim-charlie", Sightings: 1, MinConfidence: 0.65, MaxConfidence: 0.85},
			{Name: "sim-ghost", Sightings: 2, MinConfidence: 0.05, MaxConfidence: 0.30},
		},
		Spacing: 20 * time.Millisecond,
	}
}

// sighting is one recognition to submit.
type sighting struct {
	Name       string          `json:"name"`
	Confidence float64         `json:"confidence"`
	CapturedAt string          `json:"captured_at,omitempty"`
	Location   *sightingWindow `json:"location,omitempty"`
	Source     string          `json:"source"`
}

type sightingWindow struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// expand flattens the scenario into the submission order: one pass over all
// people per round, so repeat sightings of a person land close together.
func (sc *Scenario) expand() []sighting {
	maxSightings := 0
	for _, p := range sc.People {
		if p.Sightings > maxSightings {
			maxSightings = p.Sightings
		}
	}

	var out []sighting
	for round := 0; round < maxSightings; round++ {
		for _, p := range sc.People {
			if round >= p.Sightings {
				continue
			}
			out = append(out, sighting{
				Name:       p.Name,
				Confidence: p.MinConfidence + randomFloat()*(p.MaxConfidence-p.MinConfidence),
				CapturedAt: time.Now().UTC().Format(time.RFC3339),
				Location:   &sightingWindow{Top: 80, Right: 400, Bottom: 320, Left: 160},
				Source:     "simulated",
			})
		}
	}
	return out
}

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}
