package progression

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcoot/playersync/internal/model"
)

// Encode serializes a progression into its stored blob form
func Encode(p model.Progression) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode progression: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored blob. Fields missing from the blob keep their
// default values and unknown fields are ignored. A blob that does not parse
// or that violates the progression invariants returns model.ErrDataDecode.
func Decode(blob string) (model.Progression, error) {
	p := model.NewProgression()
	if strings.TrimSpace(blob) == "" {
		return p, fmt.Errorf("%w: empty blob", model.ErrDataDecode)
	}

	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return model.NewProgression(), fmt.Errorf("%w: %v", model.ErrDataDecode, err)
	}
	if err := p.Validate(); err != nil {
		return model.NewProgression(), fmt.Errorf("%w: %w", model.ErrDataDecode, err)
	}
	return p, nil
}
