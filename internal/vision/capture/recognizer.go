package capture

import (
	"fmt"

	goface "github.com/Kagami/go-face"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// Recognizer wraps the dlib face detector and encoder. The model directory
// must hold the dlib landmark, recognition and detector weights.
type Recognizer struct {
	rec *goface.Recognizer
}

// NewRecognizer loads the face models from modelDir.
func NewRecognizer(modelDir string) (*Recognizer, error) {
	rec, err := goface.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("load face models from %q: %w", modelDir, err)
	}
	return &Recognizer{rec: rec}, nil
}

// Detect runs detection and encoding on a JPEG image and returns one
// observation per face found.
func (r *Recognizer) Detect(jpegData []byte) ([]model.Observation, error) {
	faces, err := r.rec.Recognize(jpegData)
	if err != nil {
		return nil, fmt.Errorf("recognize faces: %w", err)
	}

	obs := make([]model.Observation, 0, len(faces))
	for _, f := range faces {
		enc := make(types.Encoding, types.EncodingSize)
		for i, v := range f.Descriptor {
			enc[i] = v
		}
		obs = append(obs, model.Observation{
			Location: types.Location{
				Top:    f.Rectangle.Min.Y,
				Right:  f.Rectangle.Max.X,
				Bottom: f.Rectangle.Max.Y,
				Left:   f.Rectangle.Min.X,
			},
			Encoding: enc,
		})
	}
	return obs, nil
}

// Close releases the dlib models.
func (r *Recognizer) Close() {
	r.rec.Close()
}
