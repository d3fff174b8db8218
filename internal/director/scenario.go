package director

// Plan represents the ordered capture plan for a full day/night cycle
type Plan struct {
	Version   string     `yaml:"version"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is a single animation position with the images captured at it
type Keyframe struct {
	Sample SamplePoint `yaml:"sample"`
	Shots  []Shot      `yaml:"shots"`
}

// SamplePoint is the animation progress (0-100) at which a capture occurs
type SamplePoint struct {
	Percent float64 `yaml:"percent"`
}

// Shot is one captured element of a keyframe
type Shot struct {
	Layer    Layer  `yaml:"layer"`
	FileName string `yaml:"file_name"`
}

// Layer describes a page element captured at every keyframe
type Layer struct {
	Name     string `yaml:"name"`     // Prefix of the file name, e.g. "sky"
	Selector string `yaml:"selector"` // CSS selector, e.g. "#sky"
}

// Samples returns the sample points of the plan in plan order
func (p *Plan) Samples() []SamplePoint {
	samples := make([]SamplePoint, len(p.Keyframes))
	for i, kf := range p.Keyframes {
		samples[i] = kf.Sample
	}
	return samples
}

// Percents returns the raw percentages of the plan in plan order
func (p *Plan) Percents() []float64 {
	percents := make([]float64, len(p.Keyframes))
	for i, kf := range p.Keyframes {
		percents[i] = kf.Sample.Percent
	}
	return percents
}
