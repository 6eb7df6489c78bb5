package simulate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/simulate"
	"github.com/okian/rollcall/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestParseScenario(t *testing.T) {
	Convey("Given a YAML scenario", t, func() {
		Convey("Valid input parses with defaults filled in", func() {
			sc, err := simulate.ParseScenario([]byte(`
people:
  - name: dana
    sightings: 2
    min_confidence: 0.7
    max_confidence: 0.9
  - name: kim
spacing: 5ms
`))
			So(err, ShouldBeNil)
			So(sc.People, ShouldHaveLength, 2)
			So(sc.People[0].Sightings, ShouldEqual, 2)
			So(sc.Spacing, ShouldEqual, 5*time.Millisecond)

			// kim carries no explicit bounds; defaults apply.
			So(sc.People[1].Sightings, ShouldEqual, 1)
			So(sc.People[1].MaxConfidence, ShouldAlmostEqual, 0.95, 1e-9)
			So(sc.People[1].MinConfidence, ShouldBeLessThan, sc.People[1].MaxConfidence)
		})

		Convey("A scenario without people is refused", func() {
			_, err := simulate.ParseScenario([]byte("spacing: 1s\n"))
			So(err, ShouldEqual, simulate.ErrEmptyScenario)
		})

		Convey("Malformed YAML is an error", func() {
			_, err := simulate.ParseScenario([]byte("people: [unclosed"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadScenario(t *testing.T) {
	Convey("Given a scenario file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "scenario.yaml")
		So(os.WriteFile(path, []byte("people:\n  - name: dana\n"), 0o600), ShouldBeNil)

		sc, err := simulate.LoadScenario(path)
		So(err, ShouldBeNil)
		So(sc.People[0].Name, ShouldEqual, "dana")

		Convey("A missing file is an error", func() {
			_, err := simulate.LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRunAgainstFakeService(t *testing.T) {
	Convey("Given a fake service that debounces repeat names", t, func() {
		var mu sync.Mutex
		seen := map[string]bool{}
		attendance := 0

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/api/v1/events":
				var req struct {
					Name       string  `json:"name"`
					Confidence float64 `json:"confidence"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}

				mu.Lock()
				defer mu.Unlock()
				switch {
				case req.Confidence <= 0.6:
					w.WriteHeader(http.StatusUnprocessableEntity)
				case seen[req.Name]:
					w.WriteHeader(http.StatusOK)
				default:
					seen[req.Name] = true
					attendance++
					w.WriteHeader(http.StatusAccepted)
				}
			case r.Method == http.MethodGet && r.URL.Path == "/api/v1/attendance/today":
				mu.Lock()
				defer mu.Unlock()
				_ = json.NewEncoder(w).Encode(map[string]any{"count": attendance})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		Convey("The default scenario classifies as expected", func() {
			stats, err := simulate.Run(context.Background(), &simulate.Config{
				BaseURL: srv.URL,
				Workers: 1,
				Timeout: 5 * time.Second,
			})
			So(err, ShouldBeNil)

			// sim-alpha, sim-bravo, sim-charlie land once each; repeats are
			// suppressed; sim-ghost never clears the threshold.
			So(stats.EventsSubmitted, ShouldEqual, stats.EventsGenerated)
			So(stats.Accepted, ShouldEqual, 3)
			So(stats.Suppressed, ShouldEqual, 3)
			So(stats.LowConfidence, ShouldEqual, 2)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.AttendanceSeen, ShouldEqual, 3)
		})
	})
}
