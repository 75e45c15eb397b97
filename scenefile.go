package preview

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scene is a saved project: the stage parameters plus the ordered element
// list. The on-disk form is a YAML document; see LoadScene and SaveScene.
type Scene struct {
	Width      float64
	Height     float64
	Background Color
	Elements   []Element
}

// sceneDocument is the YAML wire form of a Scene. Enumerations travel as
// their stable string names so documents stay readable and diffable.
type sceneDocument struct {
	Stage    sceneStage     `yaml:"stage"`
	Elements []sceneElement `yaml:"elements"`
}

type sceneStage struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Background Color   `yaml:"background"`
}

type sceneElement struct {
	ID        string  `yaml:"id"`
	Kind      string  `yaml:"kind"`
	Start     float64 `yaml:"start"`
	Duration  float64 `yaml:"duration"`
	TrimStart float64 `yaml:"trimStart,omitempty"`
	TrimEnd   float64 `yaml:"trimEnd,omitempty"`

	Position Vec2     `yaml:"position"`
	Scale    *Vec2    `yaml:"scale,omitempty"`
	Rotation float64  `yaml:"rotation,omitempty"`
	Opacity  *float64 `yaml:"opacity,omitempty"`
	Width    float64  `yaml:"width,omitempty"`
	Height   float64  `yaml:"height,omitempty"`
	ZIndex   *int     `yaml:"zIndex,omitempty"`
	Volume   *float64 `yaml:"volume,omitempty"`

	Animations []sceneAnimation `yaml:"animations,omitempty"`

	Text   *sceneText    `yaml:"text,omitempty"`
	Source *MediaSource  `yaml:"source,omitempty"`
	Shape  *sceneShape   `yaml:"shape,omitempty"`
	Bar    *sceneBar     `yaml:"bar,omitempty"`
	Wave   *sceneWave    `yaml:"wave,omitempty"`
	Cues   []SubtitleCue `yaml:"cues,omitempty"`
}

type sceneAnimation struct {
	Type     string  `yaml:"type"`
	Duration float64 `yaml:"duration,omitempty"`
}

type sceneText struct {
	Content   string  `yaml:"content"`
	Face      string  `yaml:"face,omitempty"`
	Size      float64 `yaml:"size,omitempty"`
	Color     Color   `yaml:"color"`
	Align     string  `yaml:"align,omitempty"`
	Bold      bool    `yaml:"bold,omitempty"`
	Italic    bool    `yaml:"italic,omitempty"`
	Underline bool    `yaml:"underline,omitempty"`
}

type sceneShape struct {
	Kind         string  `yaml:"kind"`
	Fill         Color   `yaml:"fill"`
	Stroke       Color   `yaml:"stroke,omitempty"`
	StrokeWidth  float64 `yaml:"strokeWidth,omitempty"`
	CornerRadius float64 `yaml:"cornerRadius,omitempty"`
}

type sceneBar struct {
	Style      string  `yaml:"style,omitempty"`
	Fill       Color   `yaml:"fill"`
	Background Color   `yaml:"background"`
	Thickness  float64 `yaml:"thickness,omitempty"`
}

type sceneWave struct {
	Style string `yaml:"style,omitempty"`
	Color Color  `yaml:"color"`
	Bars  int    `yaml:"bars,omitempty"`
}

// LoadScene reads and validates a scene document.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preview: read scene: %w", err)
	}
	return ParseScene(data)
}

// ParseScene decodes a scene document from YAML bytes.
func ParseScene(data []byte) (*Scene, error) {
	var doc sceneDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("preview: parse scene: %w", err)
	}

	scene := &Scene{
		Width:      doc.Stage.Width,
		Height:     doc.Stage.Height,
		Background: doc.Stage.Background,
		Elements:   make([]Element, 0, len(doc.Elements)),
	}
	for _, se := range doc.Elements {
		el, err := se.toElement()
		if err != nil {
			return nil, err
		}
		scene.Elements = append(scene.Elements, el)
	}
	return scene, nil
}

// SaveScene writes the scene as a YAML document.
func SaveScene(path string, scene *Scene) error {
	data, err := EncodeScene(scene)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("preview: write scene: %w", err)
	}
	return nil
}

// EncodeScene encodes the scene to YAML bytes.
func EncodeScene(scene *Scene) ([]byte, error) {
	doc := sceneDocument{
		Stage: sceneStage{
			Width:      scene.Width,
			Height:     scene.Height,
			Background: scene.Background,
		},
		Elements: make([]sceneElement, 0, len(scene.Elements)),
	}
	for _, el := range scene.Elements {
		doc.Elements = append(doc.Elements, sceneFromElement(el))
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("preview: encode scene: %w", err)
	}
	return data, nil
}

func (se sceneElement) toElement() (Element, error) {
	kind, ok := kindFromString(se.Kind)
	if !ok {
		return Element{}, fmt.Errorf("preview: element %q: unknown kind %q", se.ID, se.Kind)
	}

	el := Element{
		ID:        se.ID,
		Kind:      kind,
		StartTime: se.Start,
		Duration:  se.Duration,
		TrimStart: se.TrimStart,
		TrimEnd:   se.TrimEnd,
		Position:  se.Position,
		Scale:     Vec2{X: 1, Y: 1},
		Rotation:  se.Rotation,
		Opacity:   1,
		Width:     se.Width,
		Height:    se.Height,
		Volume:    1,
	}
	if se.Scale != nil {
		el.Scale = *se.Scale
	}
	if se.Opacity != nil {
		el.Opacity = *se.Opacity
	}
	if se.ZIndex != nil {
		el.ZIndex = *se.ZIndex
		el.HasZIndex = true
	}
	if se.Volume != nil {
		el.Volume = *se.Volume
	}
	if se.Source != nil {
		el.Source = *se.Source
	}
	el.Cues = se.Cues

	for _, sa := range se.Animations {
		t, ok := animationTypeFromString(sa.Type)
		if !ok {
			return Element{}, fmt.Errorf("preview: element %q: unknown animation %q", se.ID, sa.Type)
		}
		el.Animations = append(el.Animations, Animation{Type: t, Duration: sa.Duration})
	}

	if se.Text != nil {
		align, ok := alignFromString(se.Text.Align)
		if !ok {
			return Element{}, fmt.Errorf("preview: element %q: unknown align %q", se.ID, se.Text.Align)
		}
		el.Text = TextStyle{
			Content:   se.Text.Content,
			FaceID:    se.Text.Face,
			Size:      se.Text.Size,
			Color:     se.Text.Color,
			Align:     align,
			Bold:      se.Text.Bold,
			Italic:    se.Text.Italic,
			Underline: se.Text.Underline,
		}
	}
	if se.Shape != nil {
		sk, ok := shapeKindFromString(se.Shape.Kind)
		if !ok {
			return Element{}, fmt.Errorf("preview: element %q: unknown shape %q", se.ID, se.Shape.Kind)
		}
		el.Shape = ShapeStyle{
			Kind:         sk,
			Fill:         se.Shape.Fill,
			Stroke:       se.Shape.Stroke,
			StrokeWidth:  se.Shape.StrokeWidth,
			CornerRadius: se.Shape.CornerRadius,
		}
	}
	if se.Bar != nil {
		el.Bar = BarStyle{
			StyleID:    se.Bar.Style,
			Fill:       se.Bar.Fill,
			Background: se.Bar.Background,
			Thickness:  se.Bar.Thickness,
		}
	}
	if se.Wave != nil {
		el.Wave = WaveStyle{
			StyleID:  se.Wave.Style,
			Color:    se.Wave.Color,
			BarCount: se.Wave.Bars,
		}
	}
	return el, nil
}

func sceneFromElement(el Element) sceneElement {
	se := sceneElement{
		ID:        el.ID,
		Kind:      el.Kind.String(),
		Start:     el.StartTime,
		Duration:  el.Duration,
		TrimStart: el.TrimStart,
		TrimEnd:   el.TrimEnd,
		Position:  el.Position,
		Rotation:  el.Rotation,
		Width:     el.Width,
		Height:    el.Height,
		Cues:      el.Cues,
	}
	if el.Scale != (Vec2{X: 1, Y: 1}) && el.Scale != (Vec2{}) {
		sc := el.Scale
		se.Scale = &sc
	}
	if el.Opacity != 1 {
		op := el.Opacity
		se.Opacity = &op
	}
	if el.HasZIndex {
		z := el.ZIndex
		se.ZIndex = &z
	}
	if el.Volume != 1 {
		v := el.Volume
		se.Volume = &v
	}
	if !el.Source.Empty() {
		src := el.Source
		se.Source = &src
	}

	for _, a := range el.Animations {
		se.Animations = append(se.Animations, sceneAnimation{Type: a.Type.String(), Duration: a.Duration})
	}

	switch el.Kind {
	case KindText, KindSubtitle:
		se.Text = &sceneText{
			Content:   el.Text.Content,
			Face:      el.Text.FaceID,
			Size:      el.Text.Size,
			Color:     el.Text.Color,
			Align:     alignName(el.Text.Align),
			Bold:      el.Text.Bold,
			Italic:    el.Text.Italic,
			Underline: el.Text.Underline,
		}
	case KindShape:
		se.Shape = &sceneShape{
			Kind:         el.Shape.Kind.String(),
			Fill:         el.Shape.Fill,
			Stroke:       el.Shape.Stroke,
			StrokeWidth:  el.Shape.StrokeWidth,
			CornerRadius: el.Shape.CornerRadius,
		}
	case KindProgressBar:
		se.Bar = &sceneBar{
			Style:      el.Bar.StyleID,
			Fill:       el.Bar.Fill,
			Background: el.Bar.Background,
			Thickness:  el.Bar.Thickness,
		}
	case KindWave:
		se.Wave = &sceneWave{
			Style: el.Wave.StyleID,
			Color: el.Wave.Color,
			Bars:  el.Wave.BarCount,
		}
	}
	return se
}

func alignName(a TextAlign) string {
	switch a {
	case TextAlignCenter:
		return "center"
	case TextAlignRight:
		return "right"
	default:
		return "left"
	}
}

func alignFromString(s string) (TextAlign, bool) {
	switch s {
	case "", "left":
		return TextAlignLeft, true
	case "center":
		return TextAlignCenter, true
	case "right":
		return TextAlignRight, true
	}
	return 0, false
}
