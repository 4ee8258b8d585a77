package widget

import (
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"

	"github.com/jgoulah/energygoal/internal/datatable"
)

const (
	DefaultWidth           = 300
	DefaultBackgroundColor = "F5F3E5"
	DefaultAssetPath       = "/site_media/static/images/energy/"
	DefaultSubject         = "Your lounge"
)

var (
	hexColor     = regexp.MustCompile(`^#?([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)
	namedColor   = regexp.MustCompile(`^[A-Za-z]+$`)
	cssProperty  = regexp.MustCompile(`^-?[a-z][a-z0-9-]*$`)
	unsafeCSSVal = regexp.MustCompile(`[;{}<>"\\]|(?i:expression|url)\s*\(`)
)

// Style is a set of CSS declarations, property to value
type Style map[string]string

// Options controls the look of the widget. Zero values are replaced by
// defaults in WithDefaults.
type Options struct {
	Width           int    `yaml:"width,omitempty"`
	BackgroundColor string `yaml:"background_color,omitempty"`
	GlobalStyle     Style  `yaml:"global_style,omitempty"`
	TitleStyle      Style  `yaml:"title_style,omitempty"`
	CaptionStyle    Style  `yaml:"caption_style,omitempty"`
	AssetPath       string `yaml:"asset_path,omitempty"`   // Directory holding the stoplight images
	Subject         string `yaml:"subject,omitempty"`      // Who the caption talks about
	DatePattern     string `yaml:"date_pattern,omitempty"` // Pattern for the "Last check" timestamp
}

// WithDefaults returns a copy of o with every unset option defaulted
func (o Options) WithDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.BackgroundColor == "" {
		o.BackgroundColor = DefaultBackgroundColor
	}
	if o.AssetPath == "" {
		o.AssetPath = DefaultAssetPath
	}
	if !strings.HasSuffix(o.AssetPath, "/") {
		o.AssetPath += "/"
	}
	if o.Subject == "" {
		o.Subject = DefaultSubject
	}
	if o.DatePattern == "" {
		o.DatePattern = datatable.DefaultDatePattern
	}
	return o
}

// Validate checks options after defaulting
func (o Options) Validate() error {
	if o.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", o.Width)
	}
	if !hexColor.MatchString(o.BackgroundColor) && !namedColor.MatchString(o.BackgroundColor) {
		return fmt.Errorf("invalid background color %q", o.BackgroundColor)
	}
	for name, s := range map[string]Style{"global": o.GlobalStyle, "title": o.TitleStyle, "caption": o.CaptionStyle} {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s style: %w", name, err)
		}
	}
	if _, err := datatable.NewDateFormat(o.DatePattern); err != nil {
		return err
	}
	return nil
}

// backgroundCSS returns the background color as a CSS value. Bare hex
// digits get a leading '#'.
func (o Options) backgroundCSS() string {
	c := o.BackgroundColor
	if hexColor.MatchString(c) && !strings.HasPrefix(c, "#") {
		return "#" + c
	}
	return c
}

func (s Style) validate() error {
	for prop, val := range s {
		if !cssProperty.MatchString(prop) {
			return fmt.Errorf("invalid property %q", prop)
		}
		if unsafeCSSVal.MatchString(val) {
			return fmt.Errorf("invalid value %q for %s", val, prop)
		}
	}
	return nil
}

// declarations merges base with overrides and renders the result in sorted
// property order, so output is stable across calls.
func declarations(base, overrides Style) template.CSS {
	merged := make(Style, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	props := make([]string, 0, len(merged))
	for k := range merged {
		props = append(props, k)
	}
	sort.Strings(props)

	var b strings.Builder
	for i, p := range props {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s: %s;", p, strings.TrimSpace(merged[p]))
	}
	return template.CSS(b.String())
}
