package camera

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// calibFile mirrors the camodocal-style YAML calibration layout. The
// parameter blocks differ per model, so they are decoded as maps.
type calibFile struct {
	ModelType   string             `yaml:"model_type"`
	CameraName  string             `yaml:"camera_name"`
	ImageWidth  int                `yaml:"image_width"`
	ImageHeight int                `yaml:"image_height"`
	Mirror      map[string]float64 `yaml:"mirror_parameters"`
	Distortion  map[string]float64 `yaml:"distortion_parameters"`
	Projection  map[string]float64 `yaml:"projection_parameters"`
}

// LoadModel reads a calibration YAML file and constructs the camera model it
// describes. A missing or unparseable file is a fatal configuration error at
// startup; callers should not continue without a model.
func LoadModel(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var cf calibFile
	if err := yaml.Unmarshal(stripYAMLDirective(data), &cf); err != nil {
		return nil, fmt.Errorf("parsing calibration file %s: %w", path, err)
	}

	if cf.ImageWidth <= 0 || cf.ImageHeight <= 0 {
		return nil, fmt.Errorf("calibration file %s: invalid image size %dx%d", path, cf.ImageWidth, cf.ImageHeight)
	}

	switch strings.ToUpper(cf.ModelType) {
	case "PINHOLE":
		for _, k := range []string{"fx", "fy", "cx", "cy"} {
			if _, ok := cf.Projection[k]; !ok {
				return nil, fmt.Errorf("calibration file %s: missing projection parameter %q", path, k)
			}
		}
		return NewPinhole(cf.CameraName, cf.ImageWidth, cf.ImageHeight,
			cf.Projection["fx"], cf.Projection["fy"], cf.Projection["cx"], cf.Projection["cy"],
			cf.Distortion["k1"], cf.Distortion["k2"], cf.Distortion["p1"], cf.Distortion["p2"]), nil

	case "KANNALA_BRANDT":
		for _, k := range []string{"mu", "mv", "u0", "v0"} {
			if _, ok := cf.Projection[k]; !ok {
				return nil, fmt.Errorf("calibration file %s: missing projection parameter %q", path, k)
			}
		}
		return NewFisheye(cf.CameraName, cf.ImageWidth, cf.ImageHeight,
			cf.Projection["k2"], cf.Projection["k3"], cf.Projection["k4"], cf.Projection["k5"],
			cf.Projection["mu"], cf.Projection["mv"], cf.Projection["u0"], cf.Projection["v0"]), nil

	case "MEI":
		for _, k := range []string{"gamma1", "gamma2", "u0", "v0"} {
			if _, ok := cf.Projection[k]; !ok {
				return nil, fmt.Errorf("calibration file %s: missing projection parameter %q", path, k)
			}
		}
		return NewMei(cf.CameraName, cf.ImageWidth, cf.ImageHeight,
			cf.Mirror["xi"],
			cf.Distortion["k1"], cf.Distortion["k2"], cf.Distortion["p1"], cf.Distortion["p2"],
			cf.Projection["gamma1"], cf.Projection["gamma2"], cf.Projection["u0"], cf.Projection["v0"]), nil

	default:
		return nil, fmt.Errorf("calibration file %s: unknown model_type %q", path, cf.ModelType)
	}
}

// LoadRegistry builds a registry from calibration file paths. One path
// selects monocular mode, two paths enable stereo.
func LoadRegistry(paths []string) (*Registry, error) {
	if len(paths) == 0 || len(paths) > 2 {
		return nil, fmt.Errorf("expected one or two calibration files, got %d", len(paths))
	}

	r := &Registry{}
	for _, p := range paths {
		m, err := LoadModel(p)
		if err != nil {
			return nil, err
		}
		r.models = append(r.models, m)
	}
	return r, nil
}

// stripYAMLDirective removes the OpenCV-style "%YAML:1.0" directive and a
// bare document marker. The directive is not valid YAML 1.2 and trips
// strict parsers.
func stripYAMLDirective(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "%") || t == "---" {
			continue
		}
		out = append(out, l)
	}
	return []byte(strings.Join(out, "\n"))
}
